package models

import (
	"strings"
	"time"
)

// Quote is a single latest-price observation.
type Quote struct {
	Symbol string    `json:"symbol" bson:"symbol"`
	Price  float64   `json:"price" bson:"price"`
	Time   time.Time `json:"time" bson:"time"`
	Source string    `json:"source" bson:"source"`
}

// Indicators is a snapshot of technical indicators at the last bar of a
// series. A nil field means the series was too short for that indicator.
type Indicators struct {
	Source     string   `json:"source" bson:"source"`
	AsOf       string   `json:"as_of" bson:"as_of"`
	SMA20      *float64 `json:"sma_20,omitempty" bson:"sma_20,omitempty"`
	SMA50      *float64 `json:"sma_50,omitempty" bson:"sma_50,omitempty"`
	EMA10      *float64 `json:"ema_10,omitempty" bson:"ema_10,omitempty"`
	RSI14      *float64 `json:"rsi_14,omitempty" bson:"rsi_14,omitempty"`
	MACD       *float64 `json:"macd,omitempty" bson:"macd,omitempty"`
	MACDSignal *float64 `json:"macd_signal,omitempty" bson:"macd_signal,omitempty"`
	BollUpper  *float64 `json:"boll_upper,omitempty" bson:"boll_upper,omitempty"`
	BollLower  *float64 `json:"boll_lower,omitempty" bson:"boll_lower,omitempty"`
	ATR14      *float64 `json:"atr_14,omitempty" bson:"atr_14,omitempty"`
}

type PriceBar struct {
	Date   time.Time `json:"date" bson:"date"`
	Open   float64   `json:"open" bson:"open"`
	High   float64   `json:"high" bson:"high"`
	Low    float64   `json:"low" bson:"low"`
	Close  float64   `json:"close" bson:"close"`
	Volume float64   `json:"volume" bson:"volume"`
}

type PriceSeries struct {
	Symbol string     `json:"symbol" bson:"symbol"`
	Source string     `json:"source" bson:"source"`
	Bars   []PriceBar `json:"bars" bson:"bars"`
}

func (s *PriceSeries) Last() *PriceBar {
	if s == nil || len(s.Bars) == 0 {
		return nil
	}
	return &s.Bars[len(s.Bars)-1]
}

type RedditComment struct {
	Body  string `json:"body" bson:"body"`
	Score int    `json:"score" bson:"score"`
}

type RedditPost struct {
	Query     string          `json:"query" bson:"query"`
	Title     string          `json:"title" bson:"title"`
	Score     int             `json:"score" bson:"score"`
	URL       string          `json:"url" bson:"url"`
	Subreddit string          `json:"subreddit" bson:"subreddit"`
	Comments  []RedditComment `json:"comments" bson:"comments"`
}

type Article struct {
	ID            string   `json:"id" bson:"id"`
	SourceName    string   `json:"source_name" bson:"source_name"`
	Author        string   `json:"author" bson:"author"`
	Title         string   `json:"title" bson:"title"`
	Description   string   `json:"description" bson:"description"`
	URL           string   `json:"url" bson:"url"`
	URLToImage    string   `json:"urlToImage" bson:"url_to_image"`
	Content       string   `json:"content" bson:"content"`
	EconomicTerms []string `json:"economic_terms" bson:"economic_terms"`
	CreatedAt     string   `json:"createdAt" bson:"created_at"`
}

// WebPage is a search hit or a scraped page.
type WebPage struct {
	URL         string `json:"url" bson:"url"`
	Title       string `json:"title" bson:"title"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	Markdown    string `json:"markdown,omitempty" bson:"markdown,omitempty"`
}

// ResearchRecord bundles everything fetched for one ticker in one run.
type ResearchRecord struct {
	Ticker          string       `json:"ticker" bson:"ticker"`
	RedditSentiment []RedditPost `json:"reddit_sentiment" bson:"reddit_sentiment"`
	YahooData       *PriceSeries `json:"yahoo_data" bson:"yahoo_data"`
	PolygonData     *PriceSeries `json:"polygon_data" bson:"polygon_data"`
	LatestPrice     *Quote       `json:"latest_price" bson:"latest_price"`
	Articles        []Article    `json:"articles" bson:"articles"`
	Indicators      *Indicators  `json:"indicators,omitempty" bson:"indicators,omitempty"`
	Errors          []string     `json:"errors,omitempty" bson:"errors,omitempty"`
	FetchedAt       time.Time    `json:"fetched_at" bson:"fetched_at"`
}

// Price returns the latest price, or nil when none was fetched.
func (r ResearchRecord) Price() *float64 {
	if r.LatestPrice != nil && r.LatestPrice.Price > 0 {
		p := r.LatestPrice.Price
		return &p
	}
	for _, s := range []*PriceSeries{r.PolygonData, r.YahooData} {
		if bar := s.Last(); bar != nil && bar.Close > 0 {
			p := bar.Close
			return &p
		}
	}
	return nil
}

// PriceMap collects the latest price for every record; missing prices map to nil.
func PriceMap(records []ResearchRecord) map[string]*float64 {
	out := make(map[string]*float64, len(records))
	for _, r := range records {
		out[r.Ticker] = r.Price()
	}
	return out
}

// HasTerm reports whether the article is tagged with term (case-insensitive).
func (a Article) HasTerm(term string) bool {
	for _, t := range a.EconomicTerms {
		if strings.EqualFold(t, term) {
			return true
		}
	}
	return false
}

// Mentions reports whether s appears in the title, description or content.
func (a Article) Mentions(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return true
	}
	for _, field := range []string{a.Title, a.Description, a.Content} {
		if strings.Contains(strings.ToLower(field), s) {
			return true
		}
	}
	return false
}
