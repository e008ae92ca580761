package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jordymora1978/GSS-Utilidad/internal/accounts"
	"github.com/jordymora1978/GSS-Utilidad/internal/platform/httpx"
)

var (
	ErrNotFound = fmt.Errorf("order not found: %w", httpx.ErrNotFound)
)

// Repository is the storage contract for the consolidated order table:
// batched existence checks, batched inserts, field-level batched updates and
// range reads for reporting. Write batches isolate failures per row so one
// bad record never aborts the rest of a run.
type Repository interface {
	FilterExisting(ctx context.Context, orderIDs []string) (map[string]struct{}, error)
	InsertBatch(ctx context.Context, recs []Order) (failed []string, err error)
	UpdateBatch(ctx context.Context, updates []FieldUpdate) (failed []string, err error)
	Get(ctx context.Context, orderID string) (*Order, error)
	ListByOrderIDs(ctx context.Context, ids []string) ([]Order, error)
	ListByPrealertIDs(ctx context.Context, ids []string) ([]Order, error)
	ListByAssignments(ctx context.Context, keys []string) ([]Order, error)
	List(ctx context.Context, req ListRequest) ([]Order, error)
	ListRefunded(ctx context.Context, from, to time.Time) ([]Order, error)
	DuplicateOrderIDs(ctx context.Context) ([]DuplicateGroup, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// existsChunk bounds the size of the IN-list for existence checks.
const existsChunk = 100

func (r *repository) FilterExisting(ctx context.Context, orderIDs []string) (map[string]struct{}, error) {
	existing := make(map[string]struct{}, len(orderIDs))
	for start := 0; start < len(orderIDs); start += existsChunk {
		end := start + existsChunk
		if end > len(orderIDs) {
			end = len(orderIDs)
		}
		rows, err := r.pool.Query(ctx,
			`SELECT order_id FROM consolidated_orders WHERE order_id = ANY($1)`,
			orderIDs[start:end])
		if err != nil {
			return nil, fmt.Errorf("orders: filter existing: %w", err)
		}
		ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return nil, fmt.Errorf("orders: filter existing scan: %w", err)
		}
		for _, id := range ids {
			existing[id] = struct{}{}
		}
	}
	return existing, nil
}

var insertColumns = []string{
	"order_id", "prealert_id", "serial_number", "account_name", "assignment",
	"pack_id", "amz_order_id", "date_created", "quantity", "title",
	"unit_price", "logistic_type", "order_status", "declare_value",
	"net_received_amount", "net_real_amount", "logistic_weight_lbs",
	"refunded_date",
	"logistics_guide_number", "logistics_order_number", "logistics_reference",
	"logistics_status", "logistics_weight", "logistics_total", "logistics_date",
	"aditionals_order_id", "aditionals_description", "aditionals_quantity",
	"aditionals_unitprice", "aditionals_total",
	"cxp_ot_number", "cxp_date", "cxp_ref_number", "cxp_consignee",
	"cxp_co_aereo", "cxp_arancel", "cxp_iva", "cxp_handling",
	"cxp_dest_delivery", "cxp_amt_due", "cxp_goods_value",
}

func insertArgs(o Order) []any {
	return []any{
		o.OrderID, o.PrealertID, o.SerialNumber, string(o.AccountName), o.Assignment,
		o.PackID, o.AmzOrderID, o.DateCreated, o.Quantity, o.Title,
		o.UnitPrice, o.LogisticType, string(o.OrderStatus), o.DeclareValue,
		o.NetReceived, o.NetReal, o.WeightLbs,
		o.RefundedDate,
		o.LogisticsGuideNumber, o.LogisticsOrderNumber, o.LogisticsReference,
		o.LogisticsStatus, o.LogisticsWeight, o.LogisticsTotal, o.LogisticsDate,
		o.AditionalsOrderID, o.AditionalsDescription, o.AditionalsQuantity,
		o.AditionalsUnitPrice, o.AditionalsTotal,
		o.CxpOTNumber, o.CxpDate, o.CxpRefNumber, o.CxpConsignee,
		o.CxpCoAereo, o.CxpArancel, o.CxpIVA, o.CxpHandling,
		o.CxpDestDelivery, o.CxpAmtDue, o.CxpGoodsValue,
	}
}

var insertSQL = func() string {
	placeholders := make([]string, len(insertColumns))
	for i := range insertColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		`INSERT INTO consolidated_orders (%s) VALUES (%s) ON CONFLICT (order_id) DO NOTHING`,
		strings.Join(insertColumns, ", "), strings.Join(placeholders, ", "))
}()

func (r *repository) InsertBatch(ctx context.Context, recs []Order) ([]string, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	batch := &pgx.Batch{}
	for _, rec := range recs {
		batch.Queue(insertSQL, insertArgs(rec)...)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	var failed []string
	for _, rec := range recs {
		if _, err := results.Exec(); err != nil {
			failed = append(failed, rec.OrderID)
		}
	}
	return failed, nil
}

func (r *repository) UpdateBatch(ctx context.Context, updates []FieldUpdate) ([]string, error) {
	if len(updates) == 0 {
		return nil, nil
	}
	batch := &pgx.Batch{}
	queued := make([]string, 0, len(updates))
	for _, u := range updates {
		if len(u.Fields) == 0 {
			continue
		}
		sets := make([]string, 0, len(u.Fields)+1)
		args := make([]any, 0, len(u.Fields)+1)
		pos := 1
		for col, val := range u.Fields {
			sets = append(sets, fmt.Sprintf("%s = $%d", col, pos))
			args = append(args, val)
			pos++
		}
		sets = append(sets, "updated_at = NOW()")
		args = append(args, u.OrderID)
		sql := fmt.Sprintf(`UPDATE consolidated_orders SET %s WHERE order_id = $%d`,
			strings.Join(sets, ", "), pos)
		batch.Queue(sql, args...)
		queued = append(queued, u.OrderID)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	var failed []string
	for _, id := range queued {
		if _, err := results.Exec(); err != nil {
			failed = append(failed, id)
		}
	}
	return failed, nil
}

const selectColumns = `order_id, prealert_id, serial_number, account_name, assignment,
	pack_id, amz_order_id, date_created, quantity, title,
	unit_price, logistic_type, order_status, declare_value,
	net_received_amount, net_real_amount, logistic_weight_lbs, refunded_date,
	logistics_guide_number, logistics_order_number, logistics_reference,
	logistics_status, logistics_weight, logistics_total, logistics_date,
	aditionals_order_id, aditionals_description, aditionals_quantity,
	aditionals_unitprice, aditionals_total,
	cxp_ot_number, cxp_date, cxp_ref_number, cxp_consignee,
	cxp_co_aereo, cxp_arancel, cxp_iva, cxp_handling,
	cxp_dest_delivery, cxp_amt_due, cxp_goods_value,
	profit_total, profit_partner_share, profit_operator_share,
	weight_kg_rounded, billing_tax, calculated_at,
	created_at, updated_at`

func (r *repository) Get(ctx context.Context, orderID string) (*Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM consolidated_orders WHERE order_id = $1`, orderID)
	if err != nil {
		return nil, fmt.Errorf("orders: get: %w", err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[Order])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("orders: get scan: %w", err)
	}
	return &rec, nil
}

// listByKey runs a chunked ANY-select on one key column. Update-only overlay
// runs use it to load the stored records their keys can possibly touch.
func (r *repository) listByKey(ctx context.Context, column string, keys []string) ([]Order, error) {
	var out []Order
	for start := 0; start < len(keys); start += existsChunk {
		end := start + existsChunk
		if end > len(keys) {
			end = len(keys)
		}
		rows, err := r.pool.Query(ctx,
			`SELECT `+selectColumns+` FROM consolidated_orders WHERE `+column+` = ANY($1)`,
			keys[start:end])
		if err != nil {
			return nil, fmt.Errorf("orders: list by %s: %w", column, err)
		}
		recs, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[Order])
		if err != nil {
			return nil, fmt.Errorf("orders: list by %s scan: %w", column, err)
		}
		out = append(out, recs...)
	}
	return out, nil
}

func (r *repository) ListByOrderIDs(ctx context.Context, ids []string) ([]Order, error) {
	return r.listByKey(ctx, "order_id", ids)
}

func (r *repository) ListByPrealertIDs(ctx context.Context, ids []string) ([]Order, error) {
	return r.listByKey(ctx, "prealert_id", ids)
}

func (r *repository) ListByAssignments(ctx context.Context, keys []string) ([]Order, error) {
	return r.listByKey(ctx, "assignment", keys)
}

func (r *repository) List(ctx context.Context, req ListRequest) ([]Order, error) {
	var conditions []string
	var args []any
	argPos := 1

	if len(req.Accounts) > 0 {
		names := make([]string, len(req.Accounts))
		for i, a := range req.Accounts {
			names[i] = string(a)
		}
		conditions = append(conditions, fmt.Sprintf("account_name = ANY($%d)", argPos))
		args = append(args, names)
		argPos++
	}
	dateField := req.DateField
	if dateField != "logistics_date" && dateField != "cxp_date" {
		dateField = "logistics_date"
	}
	if req.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("%s >= $%d", dateField, argPos))
		args = append(args, *req.DateFrom)
		argPos++
	}
	if req.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("%s <= $%d", dateField, argPos))
		args = append(args, *req.DateTo)
		argPos++
	}

	sql := `SELECT ` + selectColumns + ` FROM consolidated_orders`
	if len(conditions) > 0 {
		sql += " WHERE " + strings.Join(conditions, " AND ")
	}
	sql += fmt.Sprintf(" ORDER BY %s, order_id", dateField)
	if req.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
		args = append(args, req.Limit, req.Offset)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("orders: list: %w", err)
	}
	recs, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[Order])
	if err != nil {
		return nil, fmt.Errorf("orders: list scan: %w", err)
	}
	return recs, nil
}

func (r *repository) ListRefunded(ctx context.Context, from, to time.Time) ([]Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM consolidated_orders
		 WHERE order_status = $1 AND refunded_date >= $2 AND refunded_date <= $3
		   AND amz_order_id IS NOT NULL AND amz_order_id <> ''
		 ORDER BY refunded_date, order_id`,
		string(OrderStatusRefunded), from, to)
	if err != nil {
		return nil, fmt.Errorf("orders: list refunded: %w", err)
	}
	recs, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[Order])
	if err != nil {
		return nil, fmt.Errorf("orders: list refunded scan: %w", err)
	}
	return recs, nil
}

func (r *repository) DuplicateOrderIDs(ctx context.Context) ([]DuplicateGroup, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT order_id, COUNT(*) AS count FROM consolidated_orders
		 GROUP BY order_id HAVING COUNT(*) > 1 ORDER BY count DESC, order_id`)
	if err != nil {
		return nil, fmt.Errorf("orders: duplicates: %w", err)
	}
	groups, err := pgx.CollectRows(rows, pgx.RowToStructByName[DuplicateGroup])
	if err != nil {
		return nil, fmt.Errorf("orders: duplicates scan: %w", err)
	}
	return groups, nil
}

// AccountsForCountries returns the accounts settling in any of the given
// countries; the profit recalculation job uses it to scope reads after a
// rate change.
func AccountsForCountries(countries []accounts.Country) []accounts.Identity {
	want := make(map[accounts.Country]struct{}, len(countries))
	for _, c := range countries {
		want[c] = struct{}{}
	}
	var out []accounts.Identity
	for _, id := range accounts.All {
		if _, ok := want[id.Country()]; ok {
			out = append(out, id)
		}
	}
	return out
}
