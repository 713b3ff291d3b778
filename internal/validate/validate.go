package validate

import (
	"fmt"
	"strings"

	"demo/ordercrm/internal/ingest"
	"demo/ordercrm/internal/model"
)

type multiErr []error

func (m multiErr) Error() string {
	var b strings.Builder
	for i, e := range m {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(e.Error())
	}
	return b.String()
}
func (m multiErr) OrNil() error {
	if len(m) == 0 {
		return nil
	}
	return m
}

// Payload rejects webhook bodies that cannot become an order. Only the order id
// is required; everything else, created_at included, falls back in ingest.Normalize.
func Payload(p ingest.Payload) error {
	var errs multiErr

	if p.ID == nil || strings.TrimSpace(string(*p.ID)) == "" {
		errs = append(errs, fmt.Errorf("id: required"))
	}

	return errs.OrNil()
}

// Status checks an operator-supplied status against the fixed set.
func Status(s string) (model.Status, error) {
	st := model.Status(s)
	if !st.Valid() {
		return "", fmt.Errorf("Invalid status. Must be one of: %s", quotedList(model.Statuses()))
	}
	return st, nil
}

// quotedList renders ['a', 'b'], the form API clients already parse.
func quotedList(sts []model.Status) string {
	q := make([]string, len(sts))
	for i, st := range sts {
		q[i] = "'" + string(st) + "'"
	}
	return "[" + strings.Join(q, ", ") + "]"
}
