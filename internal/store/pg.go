package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"demo/ordercrm/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// PG keeps one row per order. Local fields live in their own columns and win
// over the copy inside doc.
type PG struct {
	Pool PgxIface
}

type PgxIface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

func NewPG(pool PgxIface) *PG { return &PG{Pool: pool} }

const pgSelect = `SELECT row_id, local_status, status_updated_at, notes, doc FROM orders`

var demoLike = model.DemoPrefix + "%"

func (r *PG) FindByOrderID(ctx context.Context, orderID string) (model.Order, bool, error) {
	o, err := scanOrder(r.Pool.QueryRow(ctx, pgSelect+` WHERE order_id=$1`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Order{}, false, nil
		}
		return model.Order{}, false, err
	}
	return o, true, nil
}

func (r *PG) Insert(ctx context.Context, o model.Order) error {
	doc, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	_, err = r.Pool.Exec(ctx, `
		INSERT INTO orders (id, order_id, order_number, local_status, status_updated_at, notes, created_at, doc)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, o.InternalID, o.OrderID, o.OrderNumber, string(o.LocalStatus), o.StatusUpdatedAt, o.Notes, o.CreatedAt, doc)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return errDuplicate(o.OrderID)
		}
		return err
	}
	return nil
}

func (r *PG) Replace(ctx context.Context, o model.Order) error {
	doc, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal order: %w", err)
	}
	tag, err := r.Pool.Exec(ctx, `
		UPDATE orders SET
		  id=$2, order_number=$3, local_status=$4, status_updated_at=$5, notes=$6, created_at=$7, doc=$8
		WHERE order_id=$1
	`, o.OrderID, o.InternalID, o.OrderNumber, string(o.LocalStatus), o.StatusUpdatedAt, o.Notes, o.CreatedAt, doc)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PG) List(ctx context.Context, q ListQuery) ([]model.Order, error) {
	sql := pgSelect + ` WHERE order_number NOT LIKE $1`
	args := []any{demoLike}
	if q.Status != "" {
		sql += ` AND local_status = $2`
		args = append(args, string(q.Status))
	}
	sql += ` ORDER BY created_at DESC, row_id DESC`
	if q.Limit > 0 {
		sql += fmt.Sprintf(` LIMIT $%d`, len(args)+1)
		args = append(args, q.Limit)
	}

	rows, err := r.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *PG) SetStatus(ctx context.Context, orderID string, st model.Status, at time.Time) (bool, error) {
	tag, err := r.Pool.Exec(ctx, `UPDATE orders SET local_status=$2, status_updated_at=$3 WHERE order_id=$1`, orderID, string(st), at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PG) SetNotes(ctx context.Context, orderID, notes string) (bool, error) {
	tag, err := r.Pool.Exec(ctx, `UPDATE orders SET notes=$2 WHERE order_id=$1`, orderID, notes)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PG) CountByStatus(ctx context.Context) (map[model.Status]int64, error) {
	rows, err := r.Pool.Query(ctx, `
		SELECT local_status, count(*) FROM orders
		WHERE order_number NOT LIKE $1
		GROUP BY local_status`, demoLike)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[model.Status]int64)
	for rows.Next() {
		var st string
		var n int64
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[model.Status(st)] = n
	}
	return out, rows.Err()
}

func (r *PG) DeleteDemo(ctx context.Context) (int64, error) {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM orders WHERE order_number LIKE $1`, demoLike)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PG) Ping(ctx context.Context) error { return r.Pool.Ping(ctx) }

func scanOrder(row pgx.Row) (model.Order, error) {
	var (
		rowID     int64
		status    string
		updatedAt *time.Time
		notes     string
		doc       []byte
	)
	if err := row.Scan(&rowID, &status, &updatedAt, &notes, &doc); err != nil {
		return model.Order{}, err
	}
	var o model.Order
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber() // untyped line item ids must not round through float64
	if err := dec.Decode(&o); err != nil {
		return model.Order{}, fmt.Errorf("decode order row %d: %w", rowID, err)
	}
	o.StoreID = strconv.FormatInt(rowID, 10)
	o.LocalStatus = model.Status(status)
	o.StatusUpdatedAt = updatedAt
	o.Notes = notes
	return o, nil
}
