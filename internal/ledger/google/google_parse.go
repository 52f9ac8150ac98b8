package google

import (
	"fmt"
	"strconv"
	"strings"

	"expensetracker/internal/core"
)

type sheetSnapshot struct {
	expenses   []core.Expense
	users      []core.User
	categories []core.Category
	// skipped holds the 1-based sheet row numbers of malformed rows.
	skipped []int
}

// parseLedgerRows converts a values matrix (as returned by Sheets API) into
// expenses plus the user and category directories they reference.
func parseLedgerRows(values [][]any) (*sheetSnapshot, error) {
	snap := &sheetSnapshot{expenses: []core.Expense{}, users: []core.User{}, categories: []core.Category{}}
	if len(values) == 0 {
		return snap, nil
	}

	headers := toStrings(values[0])
	col := map[string]int{}
	for _, name := range []string{"ID", "Date", "User ID", "User", "Category ID", "Category", "Amount", "Description"} {
		col[name] = indexOf(headers, name)
	}
	var missing []string
	for _, name := range []string{"Date", "User", "Amount"} {
		if col[name] == -1 {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected ledger header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	users := newIDAssigner()
	categories := newIDAssigner()
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if isBlank(row) {
			continue
		}

		date, err := core.ParseDate(safeGet(row, col["Date"]))
		if err != nil {
			snap.skipped = append(snap.skipped, i+1)
			continue
		}
		cents, err := parseSheetAmount(safeGet(row, col["Amount"]))
		if err != nil {
			snap.skipped = append(snap.skipped, i+1)
			continue
		}
		userName := safeGet(row, col["User"])
		if userName == "" {
			snap.skipped = append(snap.skipped, i+1)
			continue
		}
		categoryName := safeGet(row, col["Category"])
		if categoryName == "" {
			categoryName = "Uncategorized"
		}

		id := parseID(safeGet(row, col["ID"]))
		if id == 0 {
			id = int64(i)
		}
		snap.expenses = append(snap.expenses, core.Expense{
			ID:           id,
			UserID:       users.assign(userName, parseID(safeGet(row, col["User ID"]))),
			UserName:     userName,
			CategoryID:   categories.assign(categoryName, parseID(safeGet(row, col["Category ID"]))),
			CategoryName: categoryName,
			Amount:       core.Money{Cents: cents},
			Date:         date,
			Description:  safeGet(row, col["Description"]),
		})
	}

	for _, e := range users.entries {
		snap.users = append(snap.users, core.User{ID: e.id, Name: e.name, Status: core.UserStatusActive})
	}
	for _, e := range categories.entries {
		snap.categories = append(snap.categories, core.Category{ID: e.id, Name: e.name})
	}
	return snap, nil
}

// idAssigner maps names to IDs, honouring explicit IDs and otherwise handing
// out the next free one in first-seen order.
type idAssigner struct {
	byName  map[string]int64
	used    map[int64]bool
	next    int64
	entries []idEntry
}

type idEntry struct {
	id   int64
	name string
}

func newIDAssigner() *idAssigner {
	return &idAssigner{byName: map[string]int64{}, used: map[int64]bool{}, next: 1}
}

func (a *idAssigner) assign(name string, explicit int64) int64 {
	key := strings.ToLower(name)
	if id, ok := a.byName[key]; ok {
		return id
	}
	id := explicit
	if id == 0 || a.used[id] {
		for a.used[a.next] {
			a.next++
		}
		id = a.next
	}
	a.byName[key] = id
	a.used[id] = true
	a.entries = append(a.entries, idEntry{id: id, name: name})
	return id
}

// parseSheetAmount accepts amounts as typed into a spreadsheet: an optional
// currency symbol, and either "." or "," as the decimal mark with the other
// one as a thousands separator ("1,234.56", "1.234,56", "1 234,56").
func parseSheetAmount(s string) (int64, error) {
	s = strings.Trim(s, "€$£ \u00a0")
	s = strings.NewReplacer(" ", "", "\u00a0", "", "'", "").Replace(s)

	lastComma, lastDot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastDot > lastComma {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ".", "")
		}
	case strings.Count(s, ",") > 1:
		s = strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}
	return core.ParseDecimalToCents(s)
}

func parseID(s string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 1 {
		return 0
	}
	return id
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(strings.TrimSpace(v), strings.TrimSpace(target)) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

func isBlank(row []string) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
