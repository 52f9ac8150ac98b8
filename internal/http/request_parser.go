package http

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"expensetracker/internal/core"
)

const maxBodyBytes = 1 << 20

// FieldError describes one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var errMalformedBody = errors.New("request body must be a JSON object")

// decodeBody reads a JSON object or a url-encoded form into raw field values.
// Form values are re-encoded as JSON strings so both paths share one parser.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		fields := make(map[string]json.RawMessage, len(r.PostForm))
		for k := range r.PostForm {
			fields[k] = json.RawMessage(strconv.Quote(r.PostForm.Get(k)))
		}
		return fields, nil
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, errMalformedBody
	}
	if fields == nil {
		return nil, errMalformedBody
	}
	return fields, nil
}

// parseExpenseFields validates the expense fields present in body. With
// partial unset every field but description is required.
func parseExpenseFields(body map[string]json.RawMessage, partial bool) (core.ExpensePatch, []FieldError) {
	var (
		patch core.ExpensePatch
		errs  []FieldError
	)
	fail := func(field, msg string) { errs = append(errs, FieldError{Field: field, Message: msg}) }

	if raw, ok := present(body, "user_id"); ok {
		if id, err := parsePositiveInt(raw); err != nil {
			fail("user_id", core.ErrInvalidUser.Error())
		} else {
			patch.UserID = &id
		}
	} else if !partial {
		fail("user_id", "User is required")
	}

	if raw, ok := present(body, "category_id"); ok {
		if id, err := parsePositiveInt(raw); err != nil {
			fail("category_id", core.ErrInvalidCategory.Error())
		} else {
			patch.CategoryID = &id
		}
	} else if !partial {
		fail("category_id", "Category is required")
	}

	if raw, ok := present(body, "amount"); ok {
		cents, err := core.ParseDecimalToCents(scalar(raw))
		if err != nil {
			fail("amount", core.ErrInvalidAmount.Error())
		} else {
			m := core.Money{Cents: cents}
			patch.Amount = &m
		}
	} else if !partial {
		fail("amount", "Amount is required")
	}

	if raw, ok := present(body, "date"); ok {
		d, err := core.ParseDate(scalar(raw))
		if err != nil {
			fail("date", core.ErrInvalidDate.Error())
		} else {
			patch.Date = &d
		}
	} else if !partial {
		fail("date", "Date is required")
	}

	if raw, ok := body["description"]; ok {
		var desc *string
		if err := json.Unmarshal(raw, &desc); err != nil {
			fail("description", "Description must be a string")
		} else {
			s := ""
			if desc != nil {
				s = sanitizeInput(*desc)
			}
			if len([]rune(s)) > 500 {
				fail("description", core.ErrDescriptionTooLong.Error())
			} else {
				patch.Description = &s
			}
		}
	}

	return patch, errs
}

// present returns the raw value of key unless it is missing, null or "".
func present(body map[string]json.RawMessage, key string) (json.RawMessage, bool) {
	raw, ok := body[key]
	if !ok {
		return nil, false
	}
	switch strings.TrimSpace(string(raw)) {
	case "null", `""`:
		return nil, false
	}
	return raw, true
}

// scalar returns a JSON string's content or a JSON number's literal text.
func scalar(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func parsePositiveInt(raw json.RawMessage) (int64, error) {
	n, err := strconv.ParseInt(scalar(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, strconv.ErrRange
	}
	return n, nil
}

// ParseExpenseFilter reads user_id, category_id, start_date and end_date.
func ParseExpenseFilter(query url.Values) (core.ExpenseFilter, []FieldError) {
	var (
		filter core.ExpenseFilter
		errs   []FieldError
	)

	for _, p := range []struct {
		key string
		dst *int64
		msg string
	}{
		{"user_id", &filter.UserID, core.ErrInvalidUser.Error()},
		{"category_id", &filter.CategoryID, core.ErrInvalidCategory.Error()},
	} {
		if v := strings.TrimSpace(query.Get(p.key)); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 1 {
				errs = append(errs, FieldError{Field: p.key, Message: p.msg})
				continue
			}
			*p.dst = n
		}
	}

	for _, p := range []struct {
		key string
		dst *core.Date
	}{
		{"start_date", &filter.StartDate},
		{"end_date", &filter.EndDate},
	} {
		if v := strings.TrimSpace(query.Get(p.key)); v != "" {
			d, err := core.ParseDate(v)
			if err != nil {
				errs = append(errs, FieldError{Field: p.key, Message: core.ErrInvalidDate.Error()})
				continue
			}
			*p.dst = d
		}
	}

	return filter, errs
}

// parseID reads a positive integer path parameter.
func parseID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// sanitizeInput trims whitespace and drops control characters other than tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
