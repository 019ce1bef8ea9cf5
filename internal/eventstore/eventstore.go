// Package eventstore persists scraped events and venues to sqlite or a
// remote libsql server.
package eventstore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"ticketscout/internal/components/chrono"
	"ticketscout/internal/db"
	"ticketscout/internal/tickets"
	configlibsql "ticketscout/lib/configutil/libsql"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	sql    *sql.DB
	qry    *db.Queries
	makeTx db.MakeTx
	time   chrono.API
}

// Open opens the database described by cfg and applies the schema.
func Open(cfg configlibsql.Struct, clock chrono.API) (*Store, error) {
	sqldb, err := cfg.OpenDB()
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}
	store, err := New(sqldb, clock)
	if err != nil {
		sqldb.Close()
		return nil, err
	}
	return store, nil
}

// New wraps an already open database, applying the schema.
func New(sqldb *sql.DB, clock chrono.API) (*Store, error) {
	if _, err := sqldb.Exec(db.Schema); err != nil {
		return nil, fmt.Errorf("apply event store schema: %w", err)
	}
	return &Store{
		sql:    sqldb,
		qry:    db.New(sqldb),
		makeTx: db.NewMakeTx(sqldb),
		time:   clock,
	}, nil
}

func (s *Store) Close() error {
	return s.sql.Close()
}

// SaveEvents upserts events and replaces their price listings, all in one
// transaction.
func (s *Store) SaveEvents(ctx context.Context, events []tickets.Event) error {
	if len(events) == 0 {
		return nil
	}
	txqry, discard, commit, err := s.makeTx()
	if err != nil {
		return err
	}
	defer discard()

	now := s.time.Now().Unix()
	for _, event := range events {
		row, err := eventRow(event, now)
		if err != nil {
			return fmt.Errorf("encode %s/%s: %w", event.Platform, event.ID, err)
		}
		if err := txqry.UpsertEvent(ctx, row); err != nil {
			return fmt.Errorf("save %s/%s: %w", event.Platform, event.ID, err)
		}
		if err := txqry.DeleteEventPrices(ctx, event.Platform, event.ID); err != nil {
			return err
		}
		for i, price := range event.Prices {
			err := txqry.InsertEventPrice(ctx, db.EventPrice{
				Platform: event.Platform,
				EventID:  event.ID,
				Idx:      int64(i),
				Price:    price.Price.String(),
				Currency: price.Currency,
				Section:  price.Section,
				Type:     price.Type,
				NoFee:    price.NoFee,
			})
			if err != nil {
				return err
			}
		}
	}
	return commit()
}

func (s *Store) SaveVenue(ctx context.Context, venue tickets.Venue) error {
	extensions, err := json.Marshal(venue.Extensions)
	if err != nil {
		return err
	}
	return s.qry.UpsertVenue(ctx, db.Venue{
		Platform:   venue.Platform,
		ID:         venue.ID,
		Name:       venue.Name,
		Address:    venue.Address,
		City:       venue.City,
		Country:    venue.Country,
		Capacity:   nullInt(venue.Capacity),
		Type:       venue.Type,
		Url:        venue.URL,
		Extensions: string(extensions),
		ScrapedAt:  s.time.Now().Unix(),
	})
}

// Event reads back a stored event with its prices.
func (s *Store) Event(ctx context.Context, platform, id string) (tickets.Event, error) {
	row, err := s.qry.GetEvent(ctx, platform, id)
	if errors.Is(err, sql.ErrNoRows) {
		return tickets.Event{}, fmt.Errorf("event %s/%s: %w", platform, id, ErrNotFound)
	}
	if err != nil {
		return tickets.Event{}, err
	}
	return s.hydrate(ctx, row)
}

// Events lists stored events of platform (all platforms when empty) in date
// order. limit <= 0 lists everything.
func (s *Store) Events(ctx context.Context, platform string, limit int) ([]tickets.Event, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.qry.ListEvents(ctx, db.ListEventsParams{Platform: platform, Limit: int64(limit)})
	if err != nil {
		return nil, err
	}
	out := make([]tickets.Event, 0, len(rows))
	for _, row := range rows {
		event, err := s.hydrate(ctx, row)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, nil
}

func (s *Store) Venue(ctx context.Context, platform, id string) (tickets.Venue, error) {
	row, err := s.qry.GetVenue(ctx, platform, id)
	if errors.Is(err, sql.ErrNoRows) {
		return tickets.Venue{}, fmt.Errorf("venue %s/%s: %w", platform, id, ErrNotFound)
	}
	if err != nil {
		return tickets.Venue{}, err
	}
	venue := tickets.Venue{
		ID:       row.ID,
		Platform: row.Platform,
		Name:     row.Name,
		Address:  row.Address,
		City:     row.City,
		Country:  row.Country,
		Capacity: intPtr(row.Capacity),
		Type:     row.Type,
		URL:      row.Url,
	}
	if err := decodeExtensions(row.Extensions, &venue.Extensions); err != nil {
		return tickets.Venue{}, err
	}
	return venue, nil
}

func (s *Store) hydrate(ctx context.Context, row db.Event) (tickets.Event, error) {
	event := tickets.Event{
		ID:                row.ID,
		Platform:          row.Platform,
		Name:              row.Name,
		Date:              strPtr(row.Date),
		Time:              strPtr(row.Time),
		Venue:             row.Venue,
		City:              row.City,
		Country:           row.Country,
		URL:               row.Url,
		Currency:          row.Currency,
		Status:            tickets.Status(row.Status),
		TicketCount:       intPtr(row.TicketCount),
		AvailableListings: intPtr(row.AvailableListings),
	}
	var err error
	if event.PriceMin, err = nullDecimal(row.PriceMin); err != nil {
		return tickets.Event{}, err
	}
	if event.PriceMax, err = nullDecimal(row.PriceMax); err != nil {
		return tickets.Event{}, err
	}
	if err := decodeExtensions(row.Extensions, &event.Extensions); err != nil {
		return tickets.Event{}, err
	}
	if event.RawData, err = decompressRaw(row.RawData); err != nil {
		return tickets.Event{}, fmt.Errorf("raw data of %s/%s: %w", row.Platform, row.ID, err)
	}

	prices, err := s.qry.GetEventPrices(ctx, row.Platform, row.ID)
	if err != nil {
		return tickets.Event{}, err
	}
	for _, p := range prices {
		price, err := decimal.NewFromString(p.Price)
		if err != nil {
			return tickets.Event{}, err
		}
		event.Prices = append(event.Prices, tickets.PriceEntry{
			Price:    price,
			Currency: p.Currency,
			Section:  p.Section,
			Type:     p.Type,
			NoFee:    p.NoFee,
		})
	}
	return event, nil
}

func eventRow(event tickets.Event, now int64) (db.Event, error) {
	extensions, err := json.Marshal(event.Extensions)
	if err != nil {
		return db.Event{}, err
	}
	raw, err := compressRaw(event.RawData)
	if err != nil {
		return db.Event{}, err
	}
	return db.Event{
		Platform:          event.Platform,
		ID:                event.ID,
		Name:              event.Name,
		Date:              nullStr(event.Date),
		Time:              nullStr(event.Time),
		Venue:             event.Venue,
		City:              event.City,
		Country:           event.Country,
		Url:               event.URL,
		PriceMin:          decimalStr(event.PriceMin),
		PriceMax:          decimalStr(event.PriceMax),
		Currency:          event.Currency,
		Status:            string(event.Status),
		TicketCount:       nullInt(event.TicketCount),
		AvailableListings: nullInt(event.AvailableListings),
		Extensions:        string(extensions),
		RawData:           raw,
		ScrapedAt:         now,
	}, nil
}

// compressRaw stores raw page data as gzip'd json, it is by far the largest
// column.
func compressRaw(raw map[string]any) ([]byte, error) {
	if raw == nil {
		return nil, nil
	}
	buf := bytes.Buffer{}
	w := gzip.NewWriter(&buf)
	if err := json.NewEncoder(w).Encode(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressRaw(data []byte) (map[string]any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	contents, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(contents, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeExtensions(text string, out *map[string]map[string]any) error {
	if text == "" || text == "null" {
		return nil
	}
	return json.Unmarshal([]byte(text), out)
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func strPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func decimalStr(d decimal.NullDecimal) sql.NullString {
	if !d.Valid {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Decimal.String(), Valid: true}
}

func nullDecimal(s sql.NullString) (decimal.NullDecimal, error) {
	if !s.Valid {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}
