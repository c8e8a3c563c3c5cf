// Package csv loads planning scenarios from CSV files. Malformed rows are
// collected as validation errors and reported together; one bad row does not
// abort the batch.
package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/planwerk/mrp/pkg/domain/entities"
)

// RowError is a validation failure for one CSV row
type RowError struct {
	File string
	Row  int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("%s row %d: %v", e.File, e.Row, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// ValidationErrors collects every rejected row of a load
type ValidationErrors []RowError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// Loader reads scenario data from CSV files
type Loader struct{}

// NewLoader creates a CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// Scenario is everything a resolution run needs, loaded from one directory
type Scenario struct {
	Items       []*entities.Item
	Inventories []*entities.Inventory
	Jobs        []*entities.Job
}

// LoadScenario reads items.csv, inventories.csv, lots.csv, adjustments.csv,
// jobs.csv, and requirements.csv from dir and assembles the plant. Validation
// errors from all files come back joined; the returned scenario holds every
// row that did parse.
func (l *Loader) LoadScenario(dir string) (*Scenario, error) {
	var all ValidationErrors

	items, errs := l.LoadItems(filepath.Join(dir, "items.csv"))
	if errs != nil {
		ve, ok := errs.(ValidationErrors)
		if !ok {
			return nil, errs
		}
		all = append(all, ve...)
	}
	byID := make(map[entities.ItemID]*entities.Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	inventories, errs := l.LoadInventories(filepath.Join(dir, "inventories.csv"), byID)
	if errs != nil {
		ve, ok := errs.(ValidationErrors)
		if !ok {
			return nil, errs
		}
		all = append(all, ve...)
	}
	byKey := make(map[string]*entities.Inventory, len(inventories))
	for _, inv := range inventories {
		byKey[inv.Key()] = inv
	}

	if errs := l.loadLots(filepath.Join(dir, "lots.csv"), byKey); errs != nil {
		ve, ok := errs.(ValidationErrors)
		if !ok {
			return nil, errs
		}
		all = append(all, ve...)
	}
	if errs := l.loadAdjustments(filepath.Join(dir, "adjustments.csv"), byKey); errs != nil {
		ve, ok := errs.(ValidationErrors)
		if !ok {
			return nil, errs
		}
		all = append(all, ve...)
	}

	jobs, errs := l.LoadJobs(filepath.Join(dir, "jobs.csv"), filepath.Join(dir, "requirements.csv"))
	if errs != nil {
		ve, ok := errs.(ValidationErrors)
		if !ok {
			return nil, errs
		}
		all = append(all, ve...)
	}

	scenario := &Scenario{Items: items, Inventories: inventories, Jobs: jobs}
	if len(all) > 0 {
		return scenario, all
	}
	return scenario, nil
}

// LoadJobs loads template and open jobs from jobs.csv, one row per
// manufacturing order, plus their material requirements from
// requirements.csv. Both files are optional.
func (l *Loader) LoadJobs(jobsFile, requirementsFile string) ([]*entities.Job, error) {
	header := []string{"job_id", "product_item_id", "job_quantity", "policy",
		"mo_id", "mo_quantity", "successor_id"}
	records, err := readFile(jobsFile, header)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var rowErrs ValidationErrors
	byID := make(map[string]*entities.Job)
	orders := make(map[string]*entities.ManufacturingOrder)
	var jobs []*entities.Job
	for i, record := range records {
		job, mo, err := parseJobRow(record, byID)
		if err != nil {
			rowErrs = append(rowErrs, RowError{File: filepath.Base(jobsFile), Row: i + 2, Err: err})
			continue
		}
		if _, seen := byID[job.ID]; !seen {
			byID[job.ID] = job
			jobs = append(jobs, job)
		}
		byID[job.ID].Orders = append(byID[job.ID].Orders, mo)
		orders[mo.ID] = mo
	}

	if errs := l.loadRequirements(requirementsFile, orders); errs != nil {
		ve, ok := errs.(ValidationErrors)
		if !ok {
			return jobs, errs
		}
		rowErrs = append(rowErrs, ve...)
	}

	if len(rowErrs) > 0 {
		return jobs, rowErrs
	}
	return jobs, nil
}

func (l *Loader) loadRequirements(filename string, orders map[string]*entities.ManufacturingOrder) error {
	header := []string{"mo_id", "requirement_id", "item_id", "warehouse",
		"required_qty", "constraint_type", "allow_partial", "eligible_lots"}
	records, err := readFile(filename, header)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var rowErrs ValidationErrors
	for i, record := range records {
		if err := parseRequirementInto(record, orders); err != nil {
			rowErrs = append(rowErrs, RowError{File: filepath.Base(filename), Row: i + 2, Err: err})
		}
	}
	if len(rowErrs) > 0 {
		return rowErrs
	}
	return nil
}

// LoadItems loads item definitions from a CSV file
func (l *Loader) LoadItems(filename string) ([]*entities.Item, error) {
	header := []string{"item_id", "description", "unit_of_measure", "batchable",
		"lot_controlled", "auto_split_qty", "batch_qty", "min_order_qty",
		"min_age_days", "min_shelf_life_days"}
	records, err := readFile(filename, header)
	if err != nil {
		return nil, err
	}

	var rowErrs ValidationErrors
	var items []*entities.Item
	for i, record := range records {
		item, err := parseItem(record)
		if err != nil {
			rowErrs = append(rowErrs, RowError{File: filepath.Base(filename), Row: i + 2, Err: err})
			continue
		}
		items = append(items, item)
	}
	if len(rowErrs) > 0 {
		return items, rowErrs
	}
	return items, nil
}

// LoadInventories loads stock locations from a CSV file, linking each to its
// item definition.
func (l *Loader) LoadInventories(filename string, items map[entities.ItemID]*entities.Item) ([]*entities.Inventory, error) {
	header := []string{"item_id", "warehouse", "planning_mode", "allocation_policy",
		"template_job_id", "purchase_storage_area", "unallocated"}
	records, err := readFile(filename, header)
	if err != nil {
		return nil, err
	}

	var rowErrs ValidationErrors
	var inventories []*entities.Inventory
	for i, record := range records {
		inv, err := parseInventory(record, items)
		if err != nil {
			rowErrs = append(rowErrs, RowError{File: filepath.Base(filename), Row: i + 2, Err: err})
			continue
		}
		inventories = append(inventories, inv)
	}
	if len(rowErrs) > 0 {
		return inventories, rowErrs
	}
	return inventories, nil
}

func (l *Loader) loadLots(filename string, inventories map[string]*entities.Inventory) error {
	header := []string{"item_id", "warehouse", "code", "quantity", "production_date", "expiration"}
	records, err := readFile(filename, header)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // lots are optional
		}
		return err
	}

	var rowErrs ValidationErrors
	for i, record := range records {
		if err := parseLotInto(record, inventories); err != nil {
			rowErrs = append(rowErrs, RowError{File: filepath.Base(filename), Row: i + 2, Err: err})
		}
	}
	if len(rowErrs) > 0 {
		return rowErrs
	}
	return nil
}

func (l *Loader) loadAdjustments(filename string, inventories map[string]*entities.Inventory) error {
	header := []string{"item_id", "warehouse", "quantity", "date", "reason_type", "reason_ref"}
	records, err := readFile(filename, header)
	if err != nil {
		return err
	}

	var rowErrs ValidationErrors
	for i, record := range records {
		if err := parseAdjustmentInto(record, inventories); err != nil {
			rowErrs = append(rowErrs, RowError{File: filepath.Base(filename), Row: i + 2, Err: err})
		}
	}
	if len(rowErrs) > 0 {
		return rowErrs
	}
	return nil
}

func readFile(filename string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("%s is missing its header row", filename)
	}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("%s header mismatch: expected %v, got %v",
			filename, expectedHeader, records[0])
	}
	return records[1:], nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}
	return true
}

func parseItem(record []string) (*entities.Item, error) {
	if len(record) != 10 {
		return nil, fmt.Errorf("expected 10 columns, got %d", len(record))
	}
	item, err := entities.NewItem(entities.ItemID(record[0]), record[1], record[2])
	if err != nil {
		return nil, err
	}
	if item.Batchable, err = strconv.ParseBool(record[3]); err != nil {
		return nil, fmt.Errorf("invalid batchable: %s", record[3])
	}
	if item.LotControlled, err = strconv.ParseBool(record[4]); err != nil {
		return nil, fmt.Errorf("invalid lot_controlled: %s", record[4])
	}
	if item.AutoSplitQuantity, err = parseQuantity(record[5], "auto_split_qty"); err != nil {
		return nil, err
	}
	if item.BatchQuantity, err = parseQuantity(record[6], "batch_qty"); err != nil {
		return nil, err
	}
	if item.MinOrderQuantity, err = parseQuantity(record[7], "min_order_qty"); err != nil {
		return nil, err
	}
	if item.MinAgeDays, err = strconv.Atoi(defaulted(record[8], "0")); err != nil {
		return nil, fmt.Errorf("invalid min_age_days: %s", record[8])
	}
	if item.MinShelfLifeDays, err = strconv.Atoi(defaulted(record[9], "0")); err != nil {
		return nil, fmt.Errorf("invalid min_shelf_life_days: %s", record[9])
	}
	return item, nil
}

func parseInventory(record []string, items map[entities.ItemID]*entities.Item) (*entities.Inventory, error) {
	if len(record) != 7 {
		return nil, fmt.Errorf("expected 7 columns, got %d", len(record))
	}
	item, ok := items[entities.ItemID(record[0])]
	if !ok {
		return nil, fmt.Errorf("unknown item %s", record[0])
	}
	inv, err := entities.NewInventory(item, record[1])
	if err != nil {
		return nil, err
	}
	if inv.PlanningMode, err = parsePlanningMode(record[2]); err != nil {
		return nil, err
	}
	if inv.AllocationPolicy, err = parseAllocationPolicy(record[3]); err != nil {
		return nil, err
	}
	inv.TemplateJobID = record[4]
	inv.PurchaseStorageArea = record[5]
	if inv.Unallocated, err = parseQuantity(record[6], "unallocated"); err != nil {
		return nil, err
	}
	return inv, nil
}

func parseLotInto(record []string, inventories map[string]*entities.Inventory) error {
	if len(record) != 6 {
		return fmt.Errorf("expected 6 columns, got %d", len(record))
	}
	inv, ok := inventories[record[0]+"@"+record[1]]
	if !ok {
		return fmt.Errorf("unknown inventory %s@%s", record[0], record[1])
	}
	quantity, err := parseQuantity(record[3], "quantity")
	if err != nil {
		return err
	}
	produced, err := time.Parse("2006-01-02", record[4])
	if err != nil {
		return fmt.Errorf("invalid production_date: %s (expected YYYY-MM-DD)", record[4])
	}
	lot, err := entities.NewLot(record[2], quantity, produced)
	if err != nil {
		return err
	}
	if record[5] != "" {
		expiration, err := time.Parse("2006-01-02", record[5])
		if err != nil {
			return fmt.Errorf("invalid expiration: %s (expected YYYY-MM-DD)", record[5])
		}
		lot.Expiration = &expiration
	}
	inv.AddLot(lot)
	return nil
}

func parseAdjustmentInto(record []string, inventories map[string]*entities.Inventory) error {
	if len(record) != 6 {
		return fmt.Errorf("expected 6 columns, got %d", len(record))
	}
	inv, ok := inventories[record[0]+"@"+record[1]]
	if !ok {
		return fmt.Errorf("unknown inventory %s@%s", record[0], record[1])
	}
	quantity, err := decimal.NewFromString(record[2])
	if err != nil {
		return fmt.Errorf("invalid quantity: %s", record[2])
	}
	date, err := time.Parse("2006-01-02", record[3])
	if err != nil {
		return fmt.Errorf("invalid date: %s (expected YYYY-MM-DD)", record[3])
	}
	reason, err := parseReason(record[4], record[5])
	if err != nil {
		return err
	}
	adj, err := entities.NewAdjustment(quantity, date, reason)
	if err != nil {
		return err
	}
	inv.AppendAdjustment(*adj)
	return nil
}

func parseJobRow(record []string, jobs map[string]*entities.Job) (*entities.Job, *entities.ManufacturingOrder, error) {
	if len(record) != 7 {
		return nil, nil, fmt.Errorf("expected 7 columns, got %d", len(record))
	}
	job, seen := jobs[record[0]]
	if !seen {
		quantity, err := parseQuantity(record[2], "job_quantity")
		if err != nil {
			return nil, nil, err
		}
		job, err = entities.NewJob(record[0], entities.ItemID(record[1]), quantity)
		if err != nil {
			return nil, nil, err
		}
		if job.Policy, err = parseJobPolicy(record[3]); err != nil {
			return nil, nil, err
		}
	}
	moQuantity, err := parseQuantity(record[5], "mo_quantity")
	if err != nil {
		return nil, nil, err
	}
	mo := &entities.ManufacturingOrder{
		ID:          record[4],
		Quantity:    moQuantity,
		SuccessorID: record[6],
	}
	if mo.ID == "" {
		return nil, nil, fmt.Errorf("mo_id cannot be empty")
	}
	return job, mo, nil
}

func parseRequirementInto(record []string, orders map[string]*entities.ManufacturingOrder) error {
	if len(record) != 8 {
		return fmt.Errorf("expected 8 columns, got %d", len(record))
	}
	mo, ok := orders[record[0]]
	if !ok {
		return fmt.Errorf("unknown manufacturing order %s", record[0])
	}
	quantity, err := parseQuantity(record[4], "required_qty")
	if err != nil {
		return err
	}
	req, err := entities.NewMaterialRequirement(record[1], mo.ID, entities.ItemID(record[2]), quantity)
	if err != nil {
		return err
	}
	req.Warehouse = record[3]
	if req.ConstraintType, err = parseConstraintType(record[5]); err != nil {
		return err
	}
	if record[6] != "" {
		if req.AllowPartial, err = strconv.ParseBool(record[6]); err != nil {
			return fmt.Errorf("invalid allow_partial: %s", record[6])
		}
	}
	if record[7] != "" {
		req.EligibleLots = entities.NewLotSet(strings.Split(record[7], ";")...)
	}
	mo.Requirements = append(mo.Requirements, req)
	return nil
}

func parseJobPolicy(s string) (entities.JobPolicy, error) {
	switch strings.ToLower(s) {
	case "", "planned":
		return entities.Planned, nil
	case "anchored":
		return entities.Anchored, nil
	case "firm":
		return entities.Firm, nil
	case "released":
		return entities.Released, nil
	default:
		return entities.Planned, fmt.Errorf("invalid policy: %s (expected: Planned, Anchored, Firm, or Released)", s)
	}
}

func parseConstraintType(s string) (entities.ConstraintType, error) {
	switch strings.ToLower(s) {
	case "", "constraining":
		return entities.Constraining, nil
	case "non_constraining":
		return entities.NonConstraining, nil
	case "eligible_lots":
		return entities.ConstrainedByEligibleLots, nil
	default:
		return entities.Constraining, fmt.Errorf("invalid constraint_type: %s (expected: Constraining, Non_Constraining, or Eligible_Lots)", s)
	}
}

// parseReason builds a reason variant from its type name and reference.
// Activity references are "jobID/operationID/requirementID".
func parseReason(reasonType, ref string) (entities.AdjustmentReason, error) {
	switch strings.ToLower(reasonType) {
	case "activity":
		parts := strings.SplitN(ref, "/", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("invalid activity reference: %s (expected job/operation/requirement)", ref)
		}
		return entities.ActivityReason{JobID: parts[0], OperationID: parts[1], RequirementID: parts[2]}, nil
	case "purchase_order":
		return entities.PurchaseOrderReason{OrderNumber: ref}, nil
	case "sales_order":
		parts := strings.SplitN(ref, "/", 2)
		reason := entities.SalesOrderReason{OrderNumber: parts[0]}
		if len(parts) == 2 {
			reason.Customer = parts[1]
		}
		return reason, nil
	case "transfer_order":
		return entities.TransferOrderReason{OrderNumber: ref}, nil
	case "forecast":
		return entities.ForecastReason{ForecastID: ref}, nil
	case "safety_stock":
		return entities.SafetyStockReason{}, nil
	default:
		return nil, fmt.Errorf("invalid reason_type: %s", reasonType)
	}
}

func parsePlanningMode(s string) (entities.PlanningMode, error) {
	switch strings.ToLower(s) {
	case "", "ignore":
		return entities.Ignore, nil
	case "jobs":
		return entities.GenerateJobs, nil
	case "purchase_orders":
		return entities.GeneratePurchaseOrders, nil
	default:
		return entities.Ignore, fmt.Errorf("invalid planning_mode: %s (expected: Ignore, Jobs, or Purchase_Orders)", s)
	}
}

func parseAllocationPolicy(s string) (entities.AllocationPolicy, error) {
	switch strings.ToLower(s) {
	case "":
		return entities.PolicyNotSet, nil
	case "oldest_first":
		return entities.OldestFirst, nil
	case "newest_first":
		return entities.NewestFirst, nil
	default:
		return entities.PolicyNotSet, fmt.Errorf("invalid allocation_policy: %s (expected: Oldest_First or Newest_First)", s)
	}
}

func parseQuantity(s, field string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	q, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %s", field, s)
	}
	return q, nil
}

func defaulted(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
