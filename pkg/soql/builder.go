package soql

import (
	"fmt"
	"strings"
)

// SOQL Query Builder
// This package builds SOQL query text for the Salesforce REST query endpoints.
// SOQL has no server-side bind parameters: every value is rendered inline
// following the dialect's quoting rules (see render.go), so the builder owns
// escaping of string literals.
//
// SECURITY WARNING:
// This builder does NOT escape or validate field names, object names, or other
// SOQL identifiers. All identifiers MUST come from trusted sources. User input
// should ONLY be passed as condition values, which are quoted and escaped by
// the renderer.
//
// Example - SAFE:
//   soql.NewBuilder("Contact").Select("Id", "Email").Where("Email", soql.Equal, userEmail)
//
// Example - UNSAFE (DO NOT DO THIS):
//   soql.NewBuilder(userInput).Select(userProvidedField)  // SOQL INJECTION RISK!

// Operator represents SOQL comparison operators
type Operator string

const (
	Equal              Operator = "="
	NotEqual           Operator = "!="
	GreaterThan        Operator = ">"
	GreaterThanOrEqual Operator = ">="
	LessThan           Operator = "<"
	LessThanOrEqual    Operator = "<="
	Like               Operator = "LIKE"
	NotLike            Operator = "NOT LIKE"
	In                 Operator = "IN"
	NotIn              Operator = "NOT IN"
	IsNull             Operator = "IS NULL"
	IsNotNull          Operator = "IS NOT NULL"
	Between            Operator = "BETWEEN"
)

// LogicalOperator combines conditions within a group
type LogicalOperator string

const (
	And LogicalOperator = "AND"
	Or  LogicalOperator = "OR"
)

// AggregateFunc represents SOQL aggregate functions
type AggregateFunc string

const (
	Count AggregateFunc = "COUNT"
	Sum   AggregateFunc = "SUM"
	Avg   AggregateFunc = "AVG"
	Min   AggregateFunc = "MIN"
	Max   AggregateFunc = "MAX"
)

// Wildcard selects "all rows" for aggregate targets. COUNT renders it as
// COUNT(); every other function substitutes the Id column.
const Wildcard = "*"

// Condition represents a single WHERE predicate. Or joins it to the
// preceding clause with OR instead of the enclosing default.
type Condition struct {
	Field    string
	Operator Operator
	Value    interface{}
	Or       bool
}

// Group represents grouped conditions joined by one logical operator.
// Nested groups render parenthesized.
type Group struct {
	Operator   LogicalOperator
	Conditions []Condition
	Groups     []Group
}

// Where adds a condition to the group
func (g *Group) Where(field string, operator Operator, value interface{}) *Group {
	g.Conditions = append(g.Conditions, Condition{Field: field, Operator: operator, Value: value})
	return g
}

// Aggregate describes the single aggregate expression a query may carry
type Aggregate struct {
	Func     AggregateFunc
	Field    string
	Distinct bool
}

type orderClause struct {
	field string
	desc  bool
}

// SubQuery describes a relationship sub-select rendered as a parenthesized
// nested SELECT inside the column list.
type SubQuery struct {
	relationship string
	fields       []string
	conditions   []Condition
	linkField    string
}

// NewSubQuery creates a relationship sub-select. The relationship name is the
// singular noun; it is pluralized at render time.
func NewSubQuery(relationship string, fields ...string) SubQuery {
	return SubQuery{relationship: relationship, fields: fields}
}

// Where adds a user-supplied predicate to the sub-select
func (s SubQuery) Where(field string, operator Operator, value interface{}) SubQuery {
	s.conditions = append(cloneSlice(s.conditions), Condition{Field: field, Operator: operator, Value: value})
	return s
}

// LinkField marks the relationship's implicit linking predicate. Conditions on
// this field are excluded from the rendered sub-select because the nesting
// itself expresses the parent-child link.
func (s SubQuery) LinkField(field string) SubQuery {
	s.linkField = field
	return s
}

// Builder assembles the abstract query tree. All chaining methods use value
// receivers and return an updated copy, so a builder held by a caller is never
// mutated behind its back; a half-built query can be reused as a template.
// Clone gives an explicitly independent copy for callers that prefer it.
type Builder struct {
	object     string
	fields     []string
	where      []Condition
	groups     []Group
	orderBy    []orderClause
	limit      int
	offset     int
	hasLimit   bool
	hasOffset  bool
	aggregate  *Aggregate
	subQueries []SubQuery
}

// NewBuilder creates a query builder for the given SObject.
// SECURITY: the object name must be a validated, trusted identifier.
func NewBuilder(object string) Builder {
	return Builder{object: object}
}

// Select sets the fields to select. Defaults to Id when never called.
func (b Builder) Select(fields ...string) Builder {
	b.fields = fields
	return b
}

// Where adds an AND condition
func (b Builder) Where(field string, operator Operator, value interface{}) Builder {
	b.where = append(cloneSlice(b.where), Condition{Field: field, Operator: operator, Value: value})
	return b
}

// OrWhere adds a condition joined to the preceding clause with OR
func (b Builder) OrWhere(field string, operator Operator, value interface{}) Builder {
	b.where = append(cloneSlice(b.where), Condition{Field: field, Operator: operator, Value: value, Or: true})
	return b
}

// WhereGroup adds a parenthesized condition group joined to the rest by AND
func (b Builder) WhereGroup(operator LogicalOperator, fn func(*Group)) Builder {
	g := Group{Operator: operator}
	fn(&g)
	b.groups = append(cloneSlice(b.groups), g)
	return b
}

// OrderBy adds an ORDER BY clause
func (b Builder) OrderBy(field string, desc bool) Builder {
	b.orderBy = append(cloneSlice(b.orderBy), orderClause{field: field, desc: desc})
	return b
}

// Limit sets the limit clause. Negative values are normalized to 0.
func (b Builder) Limit(limit int) Builder {
	if limit < 0 {
		limit = 0
	}
	b.limit = limit
	b.hasLimit = true
	return b
}

// Offset sets the offset clause. Negative values are normalized to 0.
func (b Builder) Offset(offset int) Builder {
	if offset < 0 {
		offset = 0
	}
	b.offset = offset
	b.hasOffset = true
	return b
}

// Aggregate sets the query's single aggregate expression. A query carries at
// most one; calling this again replaces the previous descriptor.
func (b Builder) Aggregate(fn AggregateFunc, field string) Builder {
	b.aggregate = &Aggregate{Func: fn, Field: field}
	return b
}

// Distinct requests DISTINCT on the aggregated column. Only honored for a
// real column target, never for the wildcard.
func (b Builder) Distinct() Builder {
	if b.aggregate != nil {
		agg := *b.aggregate
		agg.Distinct = true
		b.aggregate = &agg
	}
	return b
}

// SubSelect adds a relationship sub-query to the column list
func (b Builder) SubSelect(sub SubQuery) Builder {
	b.subQueries = append(cloneSlice(b.subQueries), sub)
	return b
}

// Object returns the builder's target SObject name
func (b Builder) Object() string {
	return b.object
}

// Clone returns a builder that shares nothing with the receiver.
func (b Builder) Clone() Builder {
	b.fields = cloneSlice(b.fields)
	b.where = cloneSlice(b.where)
	b.groups = cloneSlice(b.groups)
	b.orderBy = cloneSlice(b.orderBy)
	b.subQueries = cloneSlice(b.subQueries)
	if b.aggregate != nil {
		agg := *b.aggregate
		b.aggregate = &agg
	}
	return b
}

// Query is the rendered result: native SOQL text plus the structured facts
// the rest of the pipeline needs, so nothing downstream has to re-derive them
// by scanning the text.
type Query struct {
	SOQL      string
	Object    string
	Aggregate *Aggregate
	Limit     int
	Offset    int
}

// IsAggregate reports whether the query carries an aggregate expression
func (q Query) IsAggregate() bool {
	return q.Aggregate != nil
}

// Build renders the query tree into SOQL text. Malformed input (empty object
// name, unknown aggregate function, bad BETWEEN shape) fails here rather than
// producing broken query text.
func (b Builder) Build() (Query, error) {
	if strings.TrimSpace(b.object) == "" {
		return Query{}, fmt.Errorf("soql: object name is required")
	}
	if b.aggregate != nil {
		if err := validateAggregate(b.aggregate); err != nil {
			return Query{}, err
		}
	}

	soqlText, err := b.render()
	if err != nil {
		return Query{}, err
	}

	q := Query{
		SOQL:   soqlText,
		Object: b.object,
		Limit:  b.limit,
		Offset: b.offset,
	}
	if b.aggregate != nil {
		agg := *b.aggregate
		q.Aggregate = &agg
	}
	return q, nil
}

func validateAggregate(agg *Aggregate) error {
	switch agg.Func {
	case Count, Sum, Avg, Min, Max:
		return nil
	default:
		return fmt.Errorf("soql: invalid aggregate function %q", agg.Func)
	}
}

// cloneSlice copies before append so chained builder values never share a
// backing array with their ancestors.
func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in), len(in)+1)
	copy(out, in)
	return out
}
