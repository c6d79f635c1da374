package querycache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyIgnoresFormatting(t *testing.T) {
	a := Key("SELECT Id, Name FROM Account WHERE Name = 'Acme'")
	b := Key("select   id, name\n from account\twhere name = 'Acme'")
	assert.Equal(t, a, b)
	assert.Contains(t, a, "query:")
}

func TestKeyDistinguishesStatements(t *testing.T) {
	a := Key("SELECT Id FROM Account")
	b := Key("SELECT Id FROM Contact")
	assert.NotEqual(t, a, b)
}

func TestKeyCaseSensitiveLiterals(t *testing.T) {
	// Case folding applies to the whole statement, literals included.
	// Callers that need case-sensitive literal handling use distinct
	// statements.
	a := Key("SELECT Id FROM Account WHERE Name = 'acme'")
	b := Key("SELECT Id FROM Account WHERE Name = 'ACME'")
	assert.Equal(t, a, b)
}

func TestObjectName(t *testing.T) {
	tests := []struct {
		name string
		soql string
		want string
	}{
		{"simple", "SELECT Id FROM Account", "Account"},
		{"with where", "SELECT Id, Name FROM Contact WHERE Email != null", "Contact"},
		{"preserves casing", "select id from Custom_Object__c limit 5", "Custom_Object__c"},
		{"skips subquery from", "SELECT Id, (SELECT Id FROM Contacts) FROM Account", "Account"},
		{"subquery with predicate", "SELECT Name, (SELECT Email FROM Contacts WHERE Email != null) FROM Account WHERE Industry = 'Tech'", "Account"},
		{"no from clause", "SELECT Id", ""},
		{"trailing comma", "SELECT Id FROM Account, LIMIT 1", "Account"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectName(tt.soql))
		})
	}
}

func TestIsAggregate(t *testing.T) {
	assert.True(t, IsAggregate("SELECT COUNT() FROM Account"))
	assert.True(t, IsAggregate("SELECT SUM(Amount) FROM Opportunity"))
	assert.True(t, IsAggregate("select avg(Amount) from Opportunity"))
	assert.True(t, IsAggregate("SELECT MIN(CreatedDate) FROM Case"))
	assert.True(t, IsAggregate("SELECT MAX(CreatedDate) FROM Case"))
	assert.False(t, IsAggregate("SELECT Id, Name FROM Account"))
	assert.False(t, IsAggregate("SELECT Id FROM Account WHERE Name = 'Summary'"))
}

func TestObjectTag(t *testing.T) {
	assert.Equal(t, "object:Account", ObjectTag("Account"))
}
