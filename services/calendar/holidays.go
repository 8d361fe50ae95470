package calendar

// Exchange holiday tables, local dates. Extend yearly; a missing year only
// loses holiday gating, weekday and clock-window gating still apply.

var japanHolidays = map[string]bool{
	// 2025
	"2025-01-01": true, // New Year's Day
	"2025-01-02": true, // Exchange holiday
	"2025-01-03": true, // Exchange holiday
	"2025-01-13": true, // Coming of Age Day
	"2025-02-11": true, // National Foundation Day
	"2025-02-24": true, // Emperor's Birthday (observed)
	"2025-03-20": true, // Vernal Equinox
	"2025-04-29": true, // Showa Day
	"2025-05-05": true, // Children's Day
	"2025-05-06": true, // Greenery Day (observed)
	"2025-07-21": true, // Marine Day
	"2025-08-11": true, // Mountain Day
	"2025-09-15": true, // Respect for the Aged Day
	"2025-09-23": true, // Autumnal Equinox
	"2025-10-13": true, // Sports Day
	"2025-11-03": true, // Culture Day
	"2025-11-24": true, // Labor Thanksgiving Day (observed)
	"2025-12-31": true, // Exchange holiday
	// 2026
	"2026-01-01": true, // New Year's Day
	"2026-01-02": true, // Exchange holiday
	"2026-01-12": true, // Coming of Age Day
	"2026-02-11": true, // National Foundation Day
	"2026-02-23": true, // Emperor's Birthday
	"2026-03-20": true, // Vernal Equinox
	"2026-04-29": true, // Showa Day
	"2026-05-04": true, // Greenery Day
	"2026-05-05": true, // Children's Day
	"2026-05-06": true, // Constitution Day (observed)
	"2026-07-20": true, // Marine Day
	"2026-08-11": true, // Mountain Day
	"2026-09-21": true, // Respect for the Aged Day
	"2026-09-22": true, // National holiday
	"2026-09-23": true, // Autumnal Equinox
	"2026-10-12": true, // Sports Day
	"2026-11-03": true, // Culture Day
	"2026-11-23": true, // Labor Thanksgiving Day
	"2026-12-31": true, // Exchange holiday
}

var usHolidays = map[string]bool{
	// 2025
	"2025-01-01": true, // New Year's Day
	"2025-01-20": true, // Martin Luther King Jr. Day
	"2025-02-17": true, // Washington's Birthday
	"2025-04-18": true, // Good Friday
	"2025-05-26": true, // Memorial Day
	"2025-06-19": true, // Juneteenth
	"2025-07-04": true, // Independence Day
	"2025-09-01": true, // Labor Day
	"2025-11-27": true, // Thanksgiving Day
	"2025-12-25": true, // Christmas Day
	// 2026
	"2026-01-01": true, // New Year's Day
	"2026-01-19": true, // Martin Luther King Jr. Day
	"2026-02-16": true, // Washington's Birthday
	"2026-04-03": true, // Good Friday
	"2026-05-25": true, // Memorial Day
	"2026-06-19": true, // Juneteenth
	"2026-07-03": true, // Independence Day (observed)
	"2026-09-07": true, // Labor Day
	"2026-11-26": true, // Thanksgiving Day
	"2026-12-25": true, // Christmas Day
}
