package db

import "database/sql"

type Event struct {
	Platform          string
	ID                string
	Name              string
	Date              sql.NullString
	Time              sql.NullString
	Venue             string
	City              string
	Country           string
	Url               string
	PriceMin          sql.NullString
	PriceMax          sql.NullString
	Currency          string
	Status            string
	TicketCount       sql.NullInt64
	AvailableListings sql.NullInt64
	Extensions        string
	RawData           []byte
	ScrapedAt         int64
}

type EventPrice struct {
	Platform string
	EventID  string
	Idx      int64
	Price    string
	Currency string
	Section  string
	Type     string
	NoFee    bool
}

type Venue struct {
	Platform   string
	ID         string
	Name       string
	Address    string
	City       string
	Country    string
	Capacity   sql.NullInt64
	Type       string
	Url        string
	Extensions string
	ScrapedAt  int64
}
