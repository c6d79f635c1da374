package soql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildBasicSelect(t *testing.T) {
	q, err := NewBuilder("Account").
		Select("Id", "Name").
		Where("Name", Equal, "Acme").
		Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id, Name FROM Account WHERE Name = 'Acme'", q.SOQL)
	assert.Equal(t, "Account", q.Object)
	assert.False(t, q.IsAggregate())
}

func TestBuildDefaultsToIdField(t *testing.T) {
	q, err := NewBuilder("Contact").Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id FROM Contact", q.SOQL)
}

func TestBuildEmptyObjectFails(t *testing.T) {
	_, err := NewBuilder("").Build()
	require.Error(t, err)
}

func TestLiteralQuoting(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"string", "open", "Status = 'open'"},
		{"string escaping", "O'Brien", `Status = 'O\'Brien'`},
		{"int", 42, "Status = 42"},
		{"float", 1.5, "Status = 1.5"},
		{"bool true", true, "Status = TRUE"},
		{"bool false", false, "Status = FALSE"},
		{"nil", nil, "Status = null"},
		{"relative date", "LAST_N_DAYS:30", "Status = LAST_N_DAYS:30"},
		{"relative token", "TODAY", "Status = TODAY"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := NewBuilder("Case").Where("Status", Equal, tc.value).Build()
			require.NoError(t, err)
			assert.Equal(t, "SELECT Id FROM Case WHERE "+tc.want, q.SOQL)
		})
	}
}

func TestDateTimeRendersUnquoted(t *testing.T) {
	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	q, err := NewBuilder("Opportunity").
		Where("CloseDate", GreaterThan, ts).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id FROM Opportunity WHERE CloseDate > 2024-03-15T10:30:00Z", q.SOQL)
}

func TestInConditions(t *testing.T) {
	q, err := NewBuilder("Account").
		Where("Industry", In, []string{"Tech", "Energy"}).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id FROM Account WHERE Industry in ('Tech', 'Energy')", q.SOQL)

	q, err = NewBuilder("Account").
		Where("Industry", NotIn, []int{1, 2, 3}).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id FROM Account WHERE Industry not in (1, 2, 3)", q.SOQL)
}

func TestEmptyInListNeverMatches(t *testing.T) {
	q, err := NewBuilder("Account").
		Where("Id", In, []string{}).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id FROM Account WHERE Id = null", q.SOQL)
}

func TestNullComparisons(t *testing.T) {
	q, err := NewBuilder("Lead").Where("Email", IsNull, nil).Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id FROM Lead WHERE Email = null", q.SOQL)

	q, err = NewBuilder("Lead").Where("Email", IsNotNull, nil).Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id FROM Lead WHERE Email <> null", q.SOQL)
}

func TestLikeAndNotLike(t *testing.T) {
	q, err := NewBuilder("Contact").Where("Email", Like, "%@acme.com").Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id FROM Contact WHERE Email LIKE '%@acme.com'", q.SOQL)

	q, err = NewBuilder("Contact").Where("Email", NotLike, "%@spam.com").Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id FROM Contact WHERE (NOT Email LIKE '%@spam.com')", q.SOQL)
}

func TestBetween(t *testing.T) {
	q, err := NewBuilder("Opportunity").
		Where("Amount", Between, []float64{100, 500}).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id FROM Opportunity WHERE Amount between 100 and 500", q.SOQL)
}

func TestBetweenRequiresTwoValues(t *testing.T) {
	_, err := NewBuilder("Opportunity").
		Where("Amount", Between, []float64{100}).
		Build()
	require.Error(t, err)
}

func TestOrWhere(t *testing.T) {
	q, err := NewBuilder("Account").
		Where("Industry", Equal, "Tech").
		OrWhere("Industry", Equal, "Finance").
		Build()
	require.NoError(t, err)
	assert.Contains(t, q.SOQL, "Industry = 'Tech' OR Industry = 'Finance'")
}

func TestClone(t *testing.T) {
	base := NewBuilder("Account").Select("Id").Where("IsDeleted", Equal, false)
	branch := base.Clone().Where("Industry", Equal, "Tech")

	baseQuery, err := base.Build()
	require.NoError(t, err)
	branchQuery, err := branch.Build()
	require.NoError(t, err)

	assert.NotContains(t, baseQuery.SOQL, "Industry")
	assert.Contains(t, branchQuery.SOQL, "Industry = 'Tech'")
}

func TestWhereGroup(t *testing.T) {
	q, err := NewBuilder("Account").
		Where("Active__c", Equal, true).
		WhereGroup(Or, func(g *Group) {
			g.Where("Industry", Equal, "Tech").Where("Industry", Equal, "Energy")
		}).
		Build()
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT Id FROM Account WHERE Active__c = TRUE AND (Industry = 'Tech' OR Industry = 'Energy')",
		q.SOQL)
}

func TestOrderLimitOffset(t *testing.T) {
	q, err := NewBuilder("Account").
		OrderBy("Name", false).
		OrderBy("CreatedDate", true).
		Limit(10).
		Offset(20).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id FROM Account ORDER BY Name ASC, CreatedDate DESC limit 10 offset 20", q.SOQL)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, 20, q.Offset)
}

func TestAggregateRendering(t *testing.T) {
	tests := []struct {
		name    string
		builder Builder
		want    string
	}{
		{
			"count wildcard",
			NewBuilder("Account").Aggregate(Count, Wildcard),
			"SELECT COUNT() FROM Account",
		},
		{
			"count column",
			NewBuilder("Account").Aggregate(Count, "Id"),
			"SELECT COUNT(Id) FROM Account",
		},
		{
			"sum wildcard substitutes Id",
			NewBuilder("Opportunity").Aggregate(Sum, Wildcard),
			"SELECT SUM(Id) FROM Opportunity",
		},
		{
			"avg column",
			NewBuilder("Opportunity").Aggregate(Avg, "Amount"),
			"SELECT AVG(Amount) FROM Opportunity",
		},
		{
			"count distinct column",
			NewBuilder("Contact").Aggregate(Count, "AccountId").Distinct(),
			"SELECT COUNT(DISTINCT AccountId) FROM Contact",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := tc.builder.Build()
			require.NoError(t, err)
			assert.Equal(t, tc.want, q.SOQL)
			assert.True(t, q.IsAggregate())
		})
	}
}

func TestInvalidAggregateFunctionFails(t *testing.T) {
	_, err := NewBuilder("Account").Aggregate(AggregateFunc("MEDIAN"), "Amount").Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MEDIAN")
}

func TestSubSelectPluralization(t *testing.T) {
	q, err := NewBuilder("Account").
		Select("Id", "Name").
		SubSelect(NewSubQuery("Contact", "Id", "Email")).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id, Name, (SELECT Id, Email FROM Contacts) FROM Account", q.SOQL)
}

func TestSubSelectIrregularPluralization(t *testing.T) {
	// nouns ending in "ry"/"try" pluralize to "ries", not "rys"
	q, err := NewBuilder("Account").
		SubSelect(NewSubQuery("AccountHistory", "Id")).
		Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id, (SELECT Id FROM AccountHistories) FROM Account", q.SOQL)
}

func TestSubSelectExcludesLinkPredicate(t *testing.T) {
	sub := NewSubQuery("Contact", "Id").
		LinkField("AccountId").
		Where("AccountId", Equal, "001xx").
		Where("Email", IsNotNull, nil)
	q, err := NewBuilder("Account").SubSelect(sub).Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id, (SELECT Id FROM Contacts WHERE Email <> null) FROM Account", q.SOQL)
}

func TestBuilderCopyOnWrite(t *testing.T) {
	base := NewBuilder("Account").Where("Active__c", Equal, true)

	a, err := base.Where("Industry", Equal, "Tech").Build()
	require.NoError(t, err)
	b, err := base.Where("Industry", Equal, "Energy").Build()
	require.NoError(t, err)

	assert.Equal(t, "SELECT Id FROM Account WHERE Active__c = TRUE AND Industry = 'Tech'", a.SOQL)
	assert.Equal(t, "SELECT Id FROM Account WHERE Active__c = TRUE AND Industry = 'Energy'", b.SOQL)

	// the template itself is untouched
	tmpl, err := base.Build()
	require.NoError(t, err)
	assert.Equal(t, "SELECT Id FROM Account WHERE Active__c = TRUE", tmpl.SOQL)
}

func TestRelativeDateLiteralDetection(t *testing.T) {
	assert.True(t, IsRelativeDateLiteral("TODAY"))
	assert.True(t, IsRelativeDateLiteral("LAST_N_DAYS:30"))
	assert.True(t, IsRelativeDateLiteral("NEXT_N_FISCAL_QUARTERS:2"))
	assert.False(t, IsRelativeDateLiteral("today"))
	assert.False(t, IsRelativeDateLiteral("LAST_N_DAYS:"))
	assert.False(t, IsRelativeDateLiteral("Acme TODAY"))
}
