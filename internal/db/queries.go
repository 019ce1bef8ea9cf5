package db

import (
	"context"
)

const eventColumns = `platform, id, name, date, time, venue, city, country, url,
    price_min, price_max, currency, status, ticket_count, available_listings,
    extensions, raw_data, scraped_at`

func scanEvent(row interface{ Scan(...any) error }) (Event, error) {
	var i Event
	err := row.Scan(
		&i.Platform,
		&i.ID,
		&i.Name,
		&i.Date,
		&i.Time,
		&i.Venue,
		&i.City,
		&i.Country,
		&i.Url,
		&i.PriceMin,
		&i.PriceMax,
		&i.Currency,
		&i.Status,
		&i.TicketCount,
		&i.AvailableListings,
		&i.Extensions,
		&i.RawData,
		&i.ScrapedAt,
	)
	return i, err
}

const upsertEvent = `-- name: UpsertEvent :exec
insert into events (` + eventColumns + `)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict (platform, id) do update set
    name = excluded.name,
    date = excluded.date,
    time = excluded.time,
    venue = excluded.venue,
    city = excluded.city,
    country = excluded.country,
    url = excluded.url,
    price_min = excluded.price_min,
    price_max = excluded.price_max,
    currency = excluded.currency,
    status = excluded.status,
    ticket_count = excluded.ticket_count,
    available_listings = excluded.available_listings,
    extensions = excluded.extensions,
    raw_data = excluded.raw_data,
    scraped_at = excluded.scraped_at
`

func (q *Queries) UpsertEvent(ctx context.Context, arg Event) error {
	_, err := q.db.ExecContext(ctx, upsertEvent,
		arg.Platform,
		arg.ID,
		arg.Name,
		arg.Date,
		arg.Time,
		arg.Venue,
		arg.City,
		arg.Country,
		arg.Url,
		arg.PriceMin,
		arg.PriceMax,
		arg.Currency,
		arg.Status,
		arg.TicketCount,
		arg.AvailableListings,
		arg.Extensions,
		arg.RawData,
		arg.ScrapedAt,
	)
	return err
}

const getEvent = `-- name: GetEvent :one
select ` + eventColumns + ` from events
where platform = ? and id = ?
`

func (q *Queries) GetEvent(ctx context.Context, platform, id string) (Event, error) {
	return scanEvent(q.db.QueryRowContext(ctx, getEvent, platform, id))
}

const listEvents = `-- name: ListEvents :many
select ` + eventColumns + ` from events
where (?1 = '' or platform = ?1)
order by date is null, date, time, name
limit ?2
`

type ListEventsParams struct {
	Platform string
	Limit    int64
}

func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]Event, error) {
	rows, err := q.db.QueryContext(ctx, listEvents, arg.Platform, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Event
	for rows.Next() {
		i, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteEventPrices = `-- name: DeleteEventPrices :exec
delete from event_prices where platform = ? and event_id = ?
`

func (q *Queries) DeleteEventPrices(ctx context.Context, platform, eventID string) error {
	_, err := q.db.ExecContext(ctx, deleteEventPrices, platform, eventID)
	return err
}

const insertEventPrice = `-- name: InsertEventPrice :exec
insert into event_prices (platform, event_id, idx, price, currency, section, type, no_fee)
values (?, ?, ?, ?, ?, ?, ?, ?)
`

func (q *Queries) InsertEventPrice(ctx context.Context, arg EventPrice) error {
	_, err := q.db.ExecContext(ctx, insertEventPrice,
		arg.Platform,
		arg.EventID,
		arg.Idx,
		arg.Price,
		arg.Currency,
		arg.Section,
		arg.Type,
		arg.NoFee,
	)
	return err
}

const getEventPrices = `-- name: GetEventPrices :many
select platform, event_id, idx, price, currency, section, type, no_fee from event_prices
where platform = ? and event_id = ?
order by idx
`

func (q *Queries) GetEventPrices(ctx context.Context, platform, eventID string) ([]EventPrice, error) {
	rows, err := q.db.QueryContext(ctx, getEventPrices, platform, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []EventPrice
	for rows.Next() {
		var i EventPrice
		if err := rows.Scan(
			&i.Platform,
			&i.EventID,
			&i.Idx,
			&i.Price,
			&i.Currency,
			&i.Section,
			&i.Type,
			&i.NoFee,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertVenue = `-- name: UpsertVenue :exec
insert into venues (platform, id, name, address, city, country, capacity, type, url, extensions, scraped_at)
values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
on conflict (platform, id) do update set
    name = excluded.name,
    address = excluded.address,
    city = excluded.city,
    country = excluded.country,
    capacity = excluded.capacity,
    type = excluded.type,
    url = excluded.url,
    extensions = excluded.extensions,
    scraped_at = excluded.scraped_at
`

func (q *Queries) UpsertVenue(ctx context.Context, arg Venue) error {
	_, err := q.db.ExecContext(ctx, upsertVenue,
		arg.Platform,
		arg.ID,
		arg.Name,
		arg.Address,
		arg.City,
		arg.Country,
		arg.Capacity,
		arg.Type,
		arg.Url,
		arg.Extensions,
		arg.ScrapedAt,
	)
	return err
}

const getVenue = `-- name: GetVenue :one
select platform, id, name, address, city, country, capacity, type, url, extensions, scraped_at from venues
where platform = ? and id = ?
`

func (q *Queries) GetVenue(ctx context.Context, platform, id string) (Venue, error) {
	row := q.db.QueryRowContext(ctx, getVenue, platform, id)
	var i Venue
	err := row.Scan(
		&i.Platform,
		&i.ID,
		&i.Name,
		&i.Address,
		&i.City,
		&i.Country,
		&i.Capacity,
		&i.Type,
		&i.Url,
		&i.Extensions,
		&i.ScrapedAt,
	)
	return i, err
}

