package calls

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"call-desk/pkg/utils"

	"github.com/jackc/pgx/v5/pgconn"
)

// NOTE: This repository assumes the tables in db/schema.sql exist:
// - inbound_calls (unique partial index on twilio_call_sid)
// - applicants, customers (read-only here, populated by external matching)

// PostgresRepository is the production Call Store over database/sql (pgx stdlib).
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const callColumns = `c.id, c.caller_phone, c.called_number, c.twilio_call_sid,
	c.applicant_id, c.customer_id, c.assigned_to, c.status,
	c.call_duration, c.has_voicemail, c.voicemail_url, c.voicemail_transcript,
	c.callback_requested, c.notes, c.callback_notes,
	c.called_at, c.processed_at, c.completed_at, c.created_at, c.updated_at`

const detailsSelect = `
SELECT ` + callColumns + `,
	a.id, a.first_name, a.last_name, a.phone, a.email,
	cu.id, cu.name, cu.phone
FROM inbound_calls c
LEFT JOIN applicants a ON a.id = c.applicant_id
LEFT JOIN customers cu ON cu.id = c.customer_id`

const pgUniqueViolation = "23505"

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PostgresRepository) List(ctx context.Context, f ListFilter) ([]CallWithDetails, error) {
	q, args := buildListQuery(f)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]CallWithDetails, 0)
	for rows.Next() {
		d, err := scanDetails(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// buildListQuery renders the list SELECT with one placeholder per active predicate.
func buildListQuery(f ListFilter) (string, []any) {
	where, args := windowPredicates(f.Window, nil, nil)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("c.status = $%d", len(args)))
	}
	if f.AssignedTo != "" {
		args = append(args, f.AssignedTo)
		where = append(where, fmt.Sprintf("c.assigned_to = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString(detailsSelect)
	if len(where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	b.WriteString("\nORDER BY c.called_at DESC, c.created_at DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, "\nLIMIT $%d", len(args))
	}
	return b.String(), args
}

func windowPredicates(w Window, where []string, args []any) ([]string, []any) {
	if !w.From.IsZero() {
		args = append(args, w.From)
		where = append(where, fmt.Sprintf("c.called_at >= $%d", len(args)))
	}
	if !w.To.IsZero() {
		args = append(args, w.To)
		where = append(where, fmt.Sprintf("c.called_at <= $%d", len(args)))
	}
	return where, args
}

func (r *PostgresRepository) CountOpen(ctx context.Context) (int, error) {
	const q = `SELECT COUNT(*) FROM inbound_calls WHERE status = $1`
	var n int
	if err := r.db.QueryRowContext(ctx, q, string(StatusOpen)).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PostgresRepository) CountByStatus(ctx context.Context, w Window, assignedTo string) (Counts, error) {
	args := []any{assignedTo}
	where, args := windowPredicates(w, nil, args)

	q := `
SELECT c.status, COUNT(*), COUNT(*) FILTER (WHERE $1::text <> '' AND c.assigned_to = $1::text)
FROM inbound_calls c`
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += "\nGROUP BY c.status"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return Counts{}, err
	}
	defer rows.Close()

	out := Counts{ByStatus: map[TriageStatus]int{}}
	for rows.Next() {
		var (
			status  string
			n, mine int
		)
		if err := rows.Scan(&status, &n, &mine); err != nil {
			return Counts{}, err
		}
		out.ByStatus[TriageStatus(status)] = n
		out.Total += n
		out.AssignedTo += mine
	}
	return out, rows.Err()
}

const insertCall = `
INSERT INTO inbound_calls AS c (
	id, caller_phone, called_number, twilio_call_sid, status,
	call_duration, has_voicemail, voicemail_url, callback_requested, notes,
	called_at, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)`

func insertArgs(c Call) []any {
	return []any{
		c.ID, c.CallerPhone, c.CalledNumber, c.TwilioCallSID, string(c.Status),
		c.CallDuration, c.HasVoicemail, c.VoicemailURL, c.CallbackRequested, c.Notes,
		c.CalledAt, c.CreatedAt,
	}
}

func (r *PostgresRepository) Insert(ctx context.Context, c Call) (Call, error) {
	q := insertCall + "\nRETURNING " + callColumns
	var out Call
	if err := scanCall(r.db.QueryRowContext(ctx, q, insertArgs(c)...), &out); err != nil {
		if isUniqueViolation(err) {
			return Call{}, ErrConflict
		}
		return Call{}, err
	}
	return out, nil
}

func (r *PostgresRepository) InsertFromProvider(ctx context.Context, c Call) (Call, bool, error) {
	q := insertCall + `
ON CONFLICT (twilio_call_sid) WHERE twilio_call_sid IS NOT NULL DO NOTHING
RETURNING ` + callColumns
	var out Call
	err := scanCall(r.db.QueryRowContext(ctx, q, insertArgs(c)...), &out)
	if err == nil {
		return out, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) || c.TwilioCallSID == nil {
		return Call{}, false, err
	}
	// Provider retry: the row already exists.
	existing, err := r.FindByProviderCallID(ctx, *c.TwilioCallSID)
	if err != nil {
		return Call{}, false, err
	}
	return existing, false, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (CallWithDetails, error) {
	q := detailsSelect + "\nWHERE c.id = $1"
	d, err := scanDetails(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CallWithDetails{}, ErrNotFound
		}
		return CallWithDetails{}, err
	}
	return d, nil
}

func (r *PostgresRepository) FindByProviderCallID(ctx context.Context, sid string) (Call, error) {
	q := `SELECT ` + callColumns + ` FROM inbound_calls c WHERE c.twilio_call_sid = $1 LIMIT 2`
	return oneBySID(ctx, r.db, q, sid)
}

func (r *PostgresRepository) Update(ctx context.Context, id string, p Patch, now time.Time) (CallWithDetails, error) {
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		// Lock the row so concurrent patches serialize on the state machine.
		q := `SELECT ` + callColumns + ` FROM inbound_calls c WHERE c.id = $1 FOR UPDATE`
		var c Call
		if err := scanCall(tx.QueryRowContext(ctx, q, id), &c); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		return writeCall(ctx, tx, ApplyPatch(c, p, now))
	})
	if err != nil {
		return CallWithDetails{}, err
	}
	return r.Get(ctx, id)
}

func (r *PostgresRepository) UpdateByProviderCallID(ctx context.Context, sid string, p ProviderPatch, now time.Time) (Call, error) {
	var out Call
	err := utils.WithTx(ctx, r.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		q := `SELECT ` + callColumns + ` FROM inbound_calls c WHERE c.twilio_call_sid = $1 LIMIT 2 FOR UPDATE`
		c, err := oneBySID(ctx, tx, q, sid)
		if err != nil {
			return err
		}
		out = ApplyProviderPatch(c, p, now)
		return writeCall(ctx, tx, out)
	})
	if err != nil {
		return Call{}, err
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM inbound_calls WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// oneBySID enforces the exactly-one-row postcondition for provider lookups.
func oneBySID(ctx context.Context, db queryer, q, sid string) (Call, error) {
	rows, err := db.QueryContext(ctx, q, sid)
	if err != nil {
		return Call{}, err
	}
	defer rows.Close()

	var found []Call
	for rows.Next() {
		var c Call
		if err := scanCall(rows, &c); err != nil {
			return Call{}, err
		}
		found = append(found, c)
	}
	if err := rows.Err(); err != nil {
		return Call{}, err
	}
	switch len(found) {
	case 0:
		return Call{}, ErrNotFound
	case 1:
		return found[0], nil
	default:
		return Call{}, ErrAmbiguousMatch
	}
}

func writeCall(ctx context.Context, tx *sql.Tx, c Call) error {
	const q = `
UPDATE inbound_calls SET
	assigned_to = $2,
	status = $3,
	call_duration = $4,
	has_voicemail = $5,
	voicemail_url = $6,
	notes = $7,
	callback_notes = $8,
	processed_at = $9,
	completed_at = $10,
	updated_at = $11
WHERE id = $1
`
	_, err := tx.ExecContext(ctx, q,
		c.ID,
		c.AssignedTo,
		string(c.Status),
		c.CallDuration,
		c.HasVoicemail,
		c.VoicemailURL,
		c.Notes,
		c.CallbackNotes,
		c.ProcessedAt,
		c.CompletedAt,
		c.UpdatedAt,
	)
	return err
}

func scanCall(row rowScanner, c *Call, extra ...any) error {
	dest := []any{
		&c.ID,
		&c.CallerPhone,
		&c.CalledNumber,
		&c.TwilioCallSID,
		&c.ApplicantID,
		&c.CustomerID,
		&c.AssignedTo,
		&c.Status,
		&c.CallDuration,
		&c.HasVoicemail,
		&c.VoicemailURL,
		&c.VoicemailTranscript,
		&c.CallbackRequested,
		&c.Notes,
		&c.CallbackNotes,
		&c.CalledAt,
		&c.ProcessedAt,
		&c.CompletedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}

func scanDetails(row rowScanner) (CallWithDetails, error) {
	var (
		d                               CallWithDetails
		aID, aFirst, aLast, aPhone, aEm sql.NullString
		cuID, cuName, cuPhone           sql.NullString
	)
	if err := scanCall(row, &d.Call,
		&aID, &aFirst, &aLast, &aPhone, &aEm,
		&cuID, &cuName, &cuPhone,
	); err != nil {
		return CallWithDetails{}, err
	}
	if aID.Valid {
		d.Applicant = &Applicant{
			ID:        aID.String,
			FirstName: aFirst.String,
			LastName:  aLast.String,
			Phone:     nullString(aPhone),
			Email:     nullString(aEm),
		}
	}
	if cuID.Valid {
		d.Customer = &Customer{ID: cuID.String, Name: cuName.String, Phone: nullString(cuPhone)}
	}
	return d, nil
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
