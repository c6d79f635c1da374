package salesforce

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient serves pre-canned continuation pages keyed by locator
type fakeClient struct {
	pages     map[string]*QueryResponse
	moreCalls int
	moreErr   error
}

func (f *fakeClient) Query(ctx context.Context, soql string) (*QueryResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) QueryAll(ctx context.Context, soql string) (*QueryResponse, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) QueryMore(ctx context.Context, locator string) (*QueryResponse, error) {
	f.moreCalls++
	if f.moreErr != nil {
		return nil, f.moreErr
	}
	page, ok := f.pages[locator]
	if !ok {
		return nil, errors.New("unknown locator " + locator)
	}
	return page, nil
}

func (f *fakeClient) Describe(ctx context.Context, object string) (*ObjectDescribe, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) Create(ctx context.Context, object string, body Record) (*SaveResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) Update(ctx context.Context, object, id string, body Record) error {
	return errors.New("not implemented")
}

func (f *fakeClient) Delete(ctx context.Context, object, id string) error {
	return errors.New("not implemented")
}

func (f *fakeClient) CreateCollection(ctx context.Context, object string, records []Record, allOrNone bool) ([]SaveResult, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeClient) DeleteCollection(ctx context.Context, ids []string, allOrNone bool) ([]SaveResult, error) {
	return nil, errors.New("not implemented")
}

func rec(id string) Record { return Record{"Id": id} }

func TestCollectFollowsContinuationTokens(t *testing.T) {
	client := &fakeClient{pages: map[string]*QueryResponse{
		"/q/page2": {Done: false, NextRecordsURL: "/q/page3", Records: []Record{rec("3"), rec("4")}},
		"/q/page3": {Done: true, Records: []Record{rec("5")}},
	}}
	first := &QueryResponse{
		TotalSize:      5,
		Done:           false,
		NextRecordsURL: "/q/page2",
		Records:        []Record{rec("1"), rec("2")},
	}

	records, err := Collect(context.Background(), client, first)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "1", records[0].ID())
	assert.Equal(t, "5", records[4].ID())
	assert.Equal(t, 2, client.moreCalls)
}

func TestCollectSinglePage(t *testing.T) {
	client := &fakeClient{}
	first := &QueryResponse{TotalSize: 1, Done: true, Records: []Record{rec("1")}}

	records, err := Collect(context.Background(), client, first)
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Zero(t, client.moreCalls)
}

func TestCollectPropagatesContinuationError(t *testing.T) {
	client := &fakeClient{moreErr: errors.New("socket closed")}
	first := &QueryResponse{Done: false, NextRecordsURL: "/q/page2", Records: []Record{rec("1")}}

	_, err := Collect(context.Background(), client, first)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pagination continuation")
	// a single transport failure must not be retried
	assert.Equal(t, 1, client.moreCalls)
}

func TestCursorStreamsAcrossPages(t *testing.T) {
	client := &fakeClient{pages: map[string]*QueryResponse{
		"/q/page2": {Done: true, Records: []Record{rec("3")}},
	}}
	first := &QueryResponse{Done: false, NextRecordsURL: "/q/page2", Records: []Record{rec("1"), rec("2")}}

	cursor := NewCursor(client, first)
	var ids []string
	for {
		r, ok, err := cursor.Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		ids = append(ids, r.ID())
	}
	assert.Equal(t, []string{"1", "2", "3"}, ids)
}

func TestNormalizeAggregateCountUsesTotalSize(t *testing.T) {
	// COUNT() reports through totalSize even with an empty row list
	resp := &QueryResponse{TotalSize: 150, Done: true, Records: []Record{}}
	out := NormalizeAggregate("COUNT", resp)
	assert.Equal(t, 150, CountValue(out))
}

func TestNormalizeAggregateCountEmpty(t *testing.T) {
	out := NormalizeAggregate("COUNT", &QueryResponse{TotalSize: 0, Done: true})
	assert.Equal(t, 0, CountValue(out))

	out = NormalizeAggregate("COUNT", nil)
	assert.Equal(t, 0, CountValue(out))
}

func TestNormalizeAggregateExprAlias(t *testing.T) {
	resp := &QueryResponse{TotalSize: 1, Done: true, Records: []Record{{"expr0": 4200.5}}}
	out := NormalizeAggregate("SUM", resp)
	assert.Equal(t, 4200.5, SumValue(out))
}

func TestSumCoercesNullToZero(t *testing.T) {
	resp := &QueryResponse{TotalSize: 1, Done: true, Records: []Record{{"expr0": nil}}}
	out := NormalizeAggregate("SUM", resp)
	assert.Equal(t, float64(0), SumValue(out))
}

func TestAvgMinMaxKeepNull(t *testing.T) {
	resp := &QueryResponse{TotalSize: 1, Done: true, Records: []Record{{"expr0": nil}}}

	out := NormalizeAggregate("AVG", resp)
	_, ok := AvgValue(out)
	assert.False(t, ok)

	out = NormalizeAggregate("MIN", resp)
	_, ok = MinValue(out)
	assert.False(t, ok)

	out = NormalizeAggregate("MAX", resp)
	_, ok = MaxValue(out)
	assert.False(t, ok)
}

func TestAvgValuePresent(t *testing.T) {
	resp := &QueryResponse{TotalSize: 1, Done: true, Records: []Record{{"expr0": 12.5}}}
	out := NormalizeAggregate("AVG", resp)
	avg, ok := AvgValue(out)
	require.True(t, ok)
	assert.Equal(t, 12.5, avg)
}

func TestOffsetCeiling(t *testing.T) {
	assert.Equal(t, 2000, CapTotal(5000))
	assert.Equal(t, 1999, CapTotal(1999))
	assert.Equal(t, 2000, CapTotal(2000))

	// lastPage computed from the capped total, not the real one
	assert.Equal(t, 80, LastPage(5000, 25))
	assert.Equal(t, 1, LastPage(0, 25))
	assert.Equal(t, 2, LastPage(30, 25))
}
