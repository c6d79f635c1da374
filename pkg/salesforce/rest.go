package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// restClient implements Client against the Salesforce REST API
type restClient struct {
	config *Config
	http   *resty.Client
}

// NewClient creates a REST client for the configured Salesforce instance
func NewClient(config *Config) (Client, error) {
	if config == nil {
		return nil, ErrNotConfigured
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid salesforce config: %w", err)
	}

	http := resty.New().
		SetBaseURL(config.InstanceURL).
		SetAuthToken(config.AccessToken).
		SetTimeout(config.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if config.RetryCount > 0 {
		http.SetRetryCount(config.RetryCount)
	}

	return &restClient{config: config, http: http}, nil
}

// apiError is the error shape the Salesforce REST API returns
type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// wrapAPIError converts a non-2xx response into a Go error with operation context
func wrapAPIError(op string, resp *resty.Response) error {
	if resp.StatusCode() == 404 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var apiErrs []apiError
	if err := json.Unmarshal(resp.Body(), &apiErrs); err == nil && len(apiErrs) > 0 {
		return fmt.Errorf("%s: salesforce error %s: %s", op, apiErrs[0].ErrorCode, apiErrs[0].Message)
	}
	return fmt.Errorf("%s: salesforce returned status %d", op, resp.StatusCode())
}

func (c *restClient) runQuery(ctx context.Context, op, endpoint, soql string) (*QueryResponse, error) {
	var result QueryResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("q", soql).
		SetResult(&result).
		Get(c.config.basePath() + endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.IsError() {
		return nil, wrapAPIError(op, resp)
	}
	return &result, nil
}

func (c *restClient) Query(ctx context.Context, soql string) (*QueryResponse, error) {
	return c.runQuery(ctx, "query", "/query", soql)
}

func (c *restClient) QueryAll(ctx context.Context, soql string) (*QueryResponse, error) {
	return c.runQuery(ctx, "queryAll", "/queryAll", soql)
}

func (c *restClient) QueryMore(ctx context.Context, nextRecordsURL string) (*QueryResponse, error) {
	var result QueryResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get(nextRecordsURL)
	if err != nil {
		return nil, fmt.Errorf("queryMore: %w", err)
	}
	if resp.IsError() {
		return nil, wrapAPIError("queryMore", resp)
	}
	return &result, nil
}

func (c *restClient) Describe(ctx context.Context, object string) (*ObjectDescribe, error) {
	var result ObjectDescribe
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		Get(c.config.basePath() + "/sobjects/" + object + "/describe")
	if err != nil {
		return nil, fmt.Errorf("describe %s: %w", object, err)
	}
	if resp.IsError() {
		return nil, wrapAPIError("describe "+object, resp)
	}
	return &result, nil
}

func (c *restClient) Create(ctx context.Context, object string, body Record) (*SaveResult, error) {
	var result SaveResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&result).
		Post(c.config.basePath() + "/sobjects/" + object)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", object, err)
	}
	if resp.IsError() {
		return nil, wrapAPIError("create "+object, resp)
	}
	return &result, nil
}

func (c *restClient) Update(ctx context.Context, object, id string, body Record) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Patch(c.config.basePath() + "/sobjects/" + object + "/" + id)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", object, id, err)
	}
	if resp.IsError() {
		return wrapAPIError(fmt.Sprintf("update %s/%s", object, id), resp)
	}
	return nil
}

func (c *restClient) Delete(ctx context.Context, object, id string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Delete(c.config.basePath() + "/sobjects/" + object + "/" + id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", object, id, err)
	}
	if resp.IsError() {
		return wrapAPIError(fmt.Sprintf("delete %s/%s", object, id), resp)
	}
	return nil
}

// collectionCreateBody is the composite sObject collections request shape
type collectionCreateBody struct {
	AllOrNone bool                     `json:"allOrNone"`
	Records   []map[string]interface{} `json:"records"`
}

func (c *restClient) CreateCollection(ctx context.Context, object string, records []Record, allOrNone bool) ([]SaveResult, error) {
	if len(records) > CollectionCeiling {
		return nil, collectionSizeError("createCollection", len(records))
	}

	body := collectionCreateBody{AllOrNone: allOrNone, Records: make([]map[string]interface{}, len(records))}
	for i, rec := range records {
		entry := make(map[string]interface{}, len(rec)+1)
		for k, v := range rec {
			entry[k] = v
		}
		entry["attributes"] = map[string]string{"type": object}
		body.Records[i] = entry
	}

	var results []SaveResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&results).
		Post(c.config.basePath() + "/composite/sobjects")
	if err != nil {
		return nil, fmt.Errorf("createCollection %s: %w", object, err)
	}
	if resp.IsError() {
		return nil, wrapAPIError("createCollection "+object, resp)
	}
	return results, nil
}

func (c *restClient) DeleteCollection(ctx context.Context, ids []string, allOrNone bool) ([]SaveResult, error) {
	if len(ids) > CollectionCeiling {
		return nil, collectionSizeError("deleteCollection", len(ids))
	}

	var results []SaveResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("ids", strings.Join(ids, ",")).
		SetQueryParam("allOrNone", fmt.Sprintf("%t", allOrNone)).
		SetResult(&results).
		Delete(c.config.basePath() + "/composite/sobjects")
	if err != nil {
		return nil, fmt.Errorf("deleteCollection: %w", err)
	}
	if resp.IsError() {
		return nil, wrapAPIError("deleteCollection", resp)
	}
	return results, nil
}
