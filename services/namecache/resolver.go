// Package namecache resolves display names for tickers, caching results in
// MongoDB so one lookup per symbol survives restarts. Mongo is optional;
// without a URI the resolver degrades to an in-process map.
package namecache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stock_alert_backend/services/symbols"
)

const (
	// QuoteAPIBaseURL is the Yahoo Finance v7 quote endpoint.
	QuoteAPIBaseURL = "https://query1.finance.yahoo.com/v7/finance/quote"

	mongoDBName         = "stock_alert"
	mongoNameCollection = "company_names"

	// PlaceholderName stands in when a name cannot be resolved. Resolution
	// failures never block an alert.
	PlaceholderName = ""
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// nameDoc is the cached document, keyed by symbol.
type nameDoc struct {
	Symbol    string    `bson:"_id"`
	Name      string    `bson:"name"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Resolver looks up company display names with a two-level cache: an
// in-process map in front of an optional MongoDB collection.
type Resolver struct {
	httpClient *http.Client
	baseURL    string

	client *mongo.Client
	coll   *mongo.Collection

	mu   sync.RWMutex
	memo map[symbols.Symbol]string
}

// NewResolver creates a resolver. An empty mongoURI disables the persistent
// layer; a connection failure is logged and likewise falls back to the
// in-process cache only.
func NewResolver(ctx context.Context, mongoURI string) *Resolver {
	r := &Resolver{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    QuoteAPIBaseURL,
		memo:       make(map[symbols.Symbol]string),
	}

	if mongoURI == "" {
		log.Println("MONGODB_URI not set, name cache runs in-process only")
		return r
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(mongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(10).
		SetConnectTimeout(30 * time.Second).
		SetRetryWrites(true).
		SetRetryReads(true)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		log.Printf("Failed to connect to MongoDB, name cache runs in-process only: %v", err)
		return r
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		log.Printf("Failed to ping MongoDB, name cache runs in-process only: %v", err)
		client.Disconnect(connectCtx)
		return r
	}

	r.client = client
	r.coll = client.Database(mongoDBName).Collection(mongoNameCollection)
	log.Println("MongoDB name cache connected successfully")
	return r
}

// Close disconnects the persistent layer if one is attached.
func (r *Resolver) Close(ctx context.Context) {
	if r.client == nil {
		return
	}
	if err := r.client.Disconnect(ctx); err != nil {
		log.Printf("Failed to disconnect MongoDB: %v", err)
	}
}

// DisplayName returns the company name for a symbol, or PlaceholderName when
// every layer misses. Lookup order: memo, Mongo, quote API.
func (r *Resolver) DisplayName(ctx context.Context, sym symbols.Symbol) string {
	r.mu.RLock()
	name, hit := r.memo[sym]
	r.mu.RUnlock()
	if hit {
		return name
	}

	if name, ok := r.lookupMongo(ctx, sym); ok {
		r.remember(sym, name)
		return name
	}

	name, err := r.fetchName(ctx, sym)
	if err != nil {
		log.Printf("Name lookup failed for %s: %v", sym, err)
		r.remember(sym, PlaceholderName)
		return PlaceholderName
	}

	r.remember(sym, name)
	r.storeMongo(ctx, sym, name)
	return name
}

func (r *Resolver) remember(sym symbols.Symbol, name string) {
	r.mu.Lock()
	r.memo[sym] = name
	r.mu.Unlock()
}

func (r *Resolver) lookupMongo(ctx context.Context, sym symbols.Symbol) (string, bool) {
	if r.coll == nil {
		return "", false
	}
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var doc nameDoc
	err := r.coll.FindOne(opCtx, bson.M{"_id": string(sym)}).Decode(&doc)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			log.Printf("Name cache read failed for %s: %v", sym, err)
		}
		return "", false
	}
	return doc.Name, true
}

func (r *Resolver) storeMongo(ctx context.Context, sym symbols.Symbol, name string) {
	if r.coll == nil || name == PlaceholderName {
		return
	}
	opCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	doc := nameDoc{Symbol: string(sym), Name: name, UpdatedAt: time.Now()}
	_, err := r.coll.ReplaceOne(opCtx, bson.M{"_id": string(sym)},
		doc, options.Replace().SetUpsert(true))
	if err != nil {
		log.Printf("Name cache write failed for %s: %v", sym, err)
	}
}

// quote API response shape; only the name fields matter here.
type quoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol    string `json:"symbol"`
			LongName  string `json:"longName"`
			ShortName string `json:"shortName"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteResponse"`
}

// fetchName asks the quote API for one symbol's long name, falling back to
// the short name when the long one is missing.
func (r *Resolver) fetchName(ctx context.Context, sym symbols.Symbol) (string, error) {
	u := r.baseURL + "?symbols=" + url.QueryEscape(string(sym))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch name for %s: %w", sym, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("quote API error for %s (status %d): %s",
			sym, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to parse response for %s: %w", sym, err)
	}
	if parsed.QuoteResponse.Error != nil {
		return "", fmt.Errorf("quote API error for %s: %s", sym, parsed.QuoteResponse.Error.Description)
	}
	if len(parsed.QuoteResponse.Result) == 0 {
		return "", fmt.Errorf("no quote result for %s", sym)
	}

	res := parsed.QuoteResponse.Result[0]
	if res.LongName != "" {
		return res.LongName, nil
	}
	if res.ShortName != "" {
		return res.ShortName, nil
	}
	return "", fmt.Errorf("quote for %s carries no name", sym)
}
