package salesforce

import (
	"context"
	"errors"
	"fmt"
)

// CollectionCeiling is the hard per-call limit Salesforce enforces on
// composite sObject collection operations.
const CollectionCeiling = 200

// Sentinel errors for Salesforce operations
var (
	// ErrNotConfigured is returned when the client is missing instance URL or credentials
	ErrNotConfigured = errors.New("salesforce client not configured")

	// ErrNotFound is returned when a record or object does not exist
	ErrNotFound = errors.New("salesforce record not found")

	// ErrCollectionTooLarge is returned when a single collection call exceeds the ceiling
	ErrCollectionTooLarge = errors.New("salesforce collection exceeds per-call ceiling")
)

// IsNotFound checks if an error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsCollectionTooLarge checks if an error is ErrCollectionTooLarge
func IsCollectionTooLarge(err error) bool {
	return errors.Is(err, ErrCollectionTooLarge)
}

// collectionSizeError builds the descriptive ceiling violation raised before
// any network call is attempted.
func collectionSizeError(op string, size int) error {
	return fmt.Errorf("%w: %s called with %d records, ceiling is %d per call",
		ErrCollectionTooLarge, op, size, CollectionCeiling)
}

// Client is the remote execution adapter surface the rest of the library
// consumes. restClient implements it against the Salesforce REST API; tests
// substitute fakes.
type Client interface {
	// Query runs a SOQL query and returns the first result page
	Query(ctx context.Context, soql string) (*QueryResponse, error)

	// QueryAll is Query including soft-deleted and archived rows
	QueryAll(ctx context.Context, soql string) (*QueryResponse, error)

	// QueryMore follows a continuation locator returned in NextRecordsURL
	QueryMore(ctx context.Context, nextRecordsURL string) (*QueryResponse, error)

	// Describe returns field metadata for an SObject
	Describe(ctx context.Context, object string) (*ObjectDescribe, error)

	// Create inserts one record
	Create(ctx context.Context, object string, body Record) (*SaveResult, error)

	// Update patches one record by Id
	Update(ctx context.Context, object, id string, body Record) error

	// Delete removes one record by Id
	Delete(ctx context.Context, object, id string) error

	// CreateCollection inserts up to CollectionCeiling records in one call
	CreateCollection(ctx context.Context, object string, records []Record, allOrNone bool) ([]SaveResult, error)

	// DeleteCollection removes up to CollectionCeiling records by Id in one call
	DeleteCollection(ctx context.Context, ids []string, allOrNone bool) ([]SaveResult, error)
}
