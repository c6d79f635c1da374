package soql

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gobuffalo/flect"
)

// SOQL datetime/date literal layouts. Datetime comparisons render unquoted in
// this format; quoting them would make Salesforce treat them as strings.
const (
	DateTimeLayout = "2006-01-02T15:04:05Z0700"
	DateLayout     = "2006-01-02"
)

// Relative date literals are plain strings to Go but must render unquoted.
var relativeDateLiterals = map[string]struct{}{
	"YESTERDAY":           {},
	"TODAY":               {},
	"TOMORROW":            {},
	"LAST_WEEK":           {},
	"THIS_WEEK":           {},
	"NEXT_WEEK":           {},
	"LAST_MONTH":          {},
	"THIS_MONTH":          {},
	"NEXT_MONTH":          {},
	"LAST_90_DAYS":        {},
	"NEXT_90_DAYS":        {},
	"THIS_QUARTER":        {},
	"LAST_QUARTER":        {},
	"NEXT_QUARTER":        {},
	"THIS_YEAR":           {},
	"LAST_YEAR":           {},
	"NEXT_YEAR":           {},
	"THIS_FISCAL_QUARTER": {},
	"LAST_FISCAL_QUARTER": {},
	"NEXT_FISCAL_QUARTER": {},
	"THIS_FISCAL_YEAR":    {},
	"LAST_FISCAL_YEAR":    {},
	"NEXT_FISCAL_YEAR":    {},
}

// Parameterized forms like LAST_N_DAYS:30
var relativeDateNPattern = regexp.MustCompile(`^(LAST|NEXT)_N_(DAYS|WEEKS|MONTHS|QUARTERS|YEARS|FISCAL_QUARTERS|FISCAL_YEARS):\d+$`)

// IsRelativeDateLiteral reports whether s is one of the dialect's relative
// date tokens, which render unquoted even though they are strings.
func IsRelativeDateLiteral(s string) bool {
	if _, ok := relativeDateLiterals[s]; ok {
		return true
	}
	return relativeDateNPattern.MatchString(s)
}

// render builds the final SOQL text
func (b Builder) render() (string, error) {
	var query strings.Builder

	query.WriteString("SELECT ")
	if err := b.renderSelectList(&query); err != nil {
		return "", err
	}
	query.WriteString(" FROM ")
	query.WriteString(b.object)

	whereSOQL, err := renderConditions(b.where, b.groups, And)
	if err != nil {
		return "", err
	}
	if whereSOQL != "" {
		query.WriteString(" WHERE ")
		query.WriteString(whereSOQL)
	}

	if len(b.orderBy) > 0 {
		query.WriteString(" ORDER BY ")
		orders := make([]string, len(b.orderBy))
		for i, o := range b.orderBy {
			dir := "ASC"
			if o.desc {
				dir = "DESC"
			}
			orders[i] = o.field + " " + dir
		}
		query.WriteString(strings.Join(orders, ", "))
	}

	if b.hasLimit && b.limit > 0 {
		query.WriteString(fmt.Sprintf(" limit %d", b.limit))
	}
	if b.hasOffset && b.offset > 0 {
		query.WriteString(fmt.Sprintf(" offset %d", b.offset))
	}

	return query.String(), nil
}

// renderSelectList writes either the aggregate expression or the field list
// plus any relationship sub-selects.
func (b Builder) renderSelectList(query *strings.Builder) error {
	if b.aggregate != nil {
		query.WriteString(renderAggregate(*b.aggregate))
		return nil
	}

	fields := b.fields
	if len(fields) == 0 {
		fields = []string{"Id"}
	}
	query.WriteString(strings.Join(fields, ", "))

	for _, sub := range b.subQueries {
		rendered, err := sub.render()
		if err != nil {
			return err
		}
		query.WriteString(", ")
		query.WriteString(rendered)
	}
	return nil
}

func renderAggregate(agg Aggregate) string {
	field := agg.Field
	if field == Wildcard || field == "" {
		if agg.Func == Count {
			// COUNT() takes no argument for the row count form
			return "COUNT()"
		}
		field = "Id"
	}
	if agg.Distinct {
		field = "DISTINCT " + field
	}
	return fmt.Sprintf("%s(%s)", agg.Func, field)
}

// render produces the parenthesized nested select. The relationship name is
// pluralized (Opportunity -> Opportunities, History -> Histories) and the
// implicit linking predicate is dropped while user predicates are kept.
func (s SubQuery) render() (string, error) {
	if strings.TrimSpace(s.relationship) == "" {
		return "", fmt.Errorf("soql: sub-query relationship name is required")
	}
	fields := s.fields
	if len(fields) == 0 {
		fields = []string{"Id"}
	}

	kept := make([]Condition, 0, len(s.conditions))
	for _, c := range s.conditions {
		if s.linkField != "" && strings.EqualFold(c.Field, s.linkField) {
			continue
		}
		kept = append(kept, c)
	}

	var sub strings.Builder
	sub.WriteString("(SELECT ")
	sub.WriteString(strings.Join(fields, ", "))
	sub.WriteString(" FROM ")
	sub.WriteString(flect.Pluralize(s.relationship))

	whereSOQL, err := renderConditions(kept, nil, And)
	if err != nil {
		return "", err
	}
	if whereSOQL != "" {
		sub.WriteString(" WHERE ")
		sub.WriteString(whereSOQL)
	}
	sub.WriteString(")")
	return sub.String(), nil
}

func renderConditions(conds []Condition, groups []Group, op LogicalOperator) (string, error) {
	var sb strings.Builder
	write := func(connective LogicalOperator, clause string) {
		if sb.Len() > 0 {
			sb.WriteString(" " + string(connective) + " ")
		}
		sb.WriteString(clause)
	}
	for _, c := range conds {
		rendered, err := renderCondition(c)
		if err != nil {
			return "", err
		}
		connective := op
		if c.Or {
			connective = Or
		}
		write(connective, rendered)
	}
	for _, g := range groups {
		rendered, err := renderGroup(g)
		if err != nil {
			return "", err
		}
		if rendered != "" {
			write(op, "("+rendered+")")
		}
	}
	return sb.String(), nil
}

func renderGroup(g Group) (string, error) {
	op := g.Operator
	if op == "" {
		op = And
	}
	return renderConditions(g.Conditions, g.Groups, op)
}

func renderCondition(c Condition) (string, error) {
	if strings.TrimSpace(c.Field) == "" {
		return "", fmt.Errorf("soql: condition field is required")
	}

	switch c.Operator {
	case IsNull:
		// SOQL has no IS/IS NOT keywords; null comparisons use =/<>
		return fmt.Sprintf("%s = null", c.Field), nil
	case IsNotNull:
		return fmt.Sprintf("%s <> null", c.Field), nil
	case In, NotIn:
		return renderInCondition(c)
	case Between:
		return renderBetweenCondition(c)
	case Like:
		literal, err := renderValue(c.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s LIKE %s", c.Field, literal), nil
	case NotLike:
		literal, err := renderValue(c.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("(NOT %s LIKE %s)", c.Field, literal), nil
	case Equal, NotEqual, GreaterThan, GreaterThanOrEqual, LessThan, LessThanOrEqual:
		literal, err := renderValue(c.Value)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", c.Field, c.Operator, literal), nil
	default:
		return "", fmt.Errorf("soql: unsupported operator %q", c.Operator)
	}
}

func renderInCondition(c Condition) (string, error) {
	values, err := valueList(c.Value)
	if err != nil {
		return "", fmt.Errorf("soql: %s requires a value list: %w", c.Operator, err)
	}
	if len(values) == 0 {
		// An empty IN list must stay syntactically valid and never match
		if c.Operator == In {
			return "Id = null", nil
		}
		return "Id <> null", nil
	}

	literals := make([]string, len(values))
	for i, v := range values {
		literal, err := renderValue(v)
		if err != nil {
			return "", err
		}
		literals[i] = literal
	}

	keyword := "in"
	if c.Operator == NotIn {
		keyword = "not in"
	}
	return fmt.Sprintf("%s %s (%s)", c.Field, keyword, strings.Join(literals, ", ")), nil
}

func renderBetweenCondition(c Condition) (string, error) {
	values, err := valueList(c.Value)
	if err != nil || len(values) != 2 {
		return "", fmt.Errorf("soql: BETWEEN requires exactly 2 values")
	}
	lo, err := renderValue(values[0])
	if err != nil {
		return "", err
	}
	hi, err := renderValue(values[1])
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s between %s and %s", c.Field, lo, hi), nil
}

// valueList normalizes the supported slice shapes for IN/BETWEEN values
func valueList(v interface{}) ([]interface{}, error) {
	switch vv := v.(type) {
	case nil:
		return nil, nil
	case []interface{}:
		return vv, nil
	case []string:
		out := make([]interface{}, len(vv))
		for i, s := range vv {
			out[i] = s
		}
		return out, nil
	case []int:
		out := make([]interface{}, len(vv))
		for i, n := range vv {
			out[i] = n
		}
		return out, nil
	case []int64:
		out := make([]interface{}, len(vv))
		for i, n := range vv {
			out[i] = n
		}
		return out, nil
	case []float64:
		out := make([]interface{}, len(vv))
		for i, f := range vv {
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported list type %T", v)
	}
}

// renderValue applies the dialect's literal quoting rules
func renderValue(v interface{}) (string, error) {
	switch vv := v.(type) {
	case nil:
		return "null", nil
	case string:
		if IsRelativeDateLiteral(vv) {
			return vv, nil
		}
		return quoteString(vv), nil
	case bool:
		if vv {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(vv), nil
	case int32:
		return strconv.FormatInt(int64(vv), 10), nil
	case int64:
		return strconv.FormatInt(vv, 10), nil
	case uint:
		return strconv.FormatUint(uint64(vv), 10), nil
	case uint64:
		return strconv.FormatUint(vv, 10), nil
	case float32:
		return strconv.FormatFloat(float64(vv), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(vv, 'f', -1, 64), nil
	case time.Time:
		return vv.UTC().Format(DateTimeLayout), nil
	case fmt.Stringer:
		return quoteString(vv.String()), nil
	default:
		return "", fmt.Errorf("soql: cannot render value of type %T", v)
	}
}

var stringEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quoteString(s string) string {
	return "'" + stringEscaper.Replace(s) + "'"
}
