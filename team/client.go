package team

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	planhttp "github.com/randalmurphal/planflow/http"
)

// Fetcher supplies roster members for an organization. The engine never
// talks HTTP directly; it sees this interface.
type Fetcher interface {
	Members(ctx context.Context, organization string) ([]Member, error)
}

// CapabilityModelFor fetches the roster for organization and builds its
// capability model.
func CapabilityModelFor(ctx context.Context, f Fetcher, organization string) (*CapabilityModel, error) {
	members, err := f.Members(ctx, organization)
	if err != nil {
		return nil, err
	}
	return Build(members), nil
}

// membersPage is one page of the backend's roster listing.
type membersPage struct {
	Members []Member `json:"members"`
	HasMore bool     `json:"has_more"`
}

const membersPerPage = 50

// Client fetches rosters from the planning backend over HTTP.
type Client struct {
	http *planhttp.Client
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	token      string
	httpClient *http.Client
}

// WithToken sets a bearer token forwarded on every request. The token is
// opaque to this package.
func WithToken(token string) ClientOption {
	return func(o *clientOptions) { o.token = token }
}

// WithHTTPClient overrides the underlying *http.Client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) { o.httpClient = c }
}

// NewClient creates a roster client for the planning backend at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	cfg := planhttp.ClientConfig{
		BaseURL:     baseURL,
		ServiceName: "planning-backend",
		Client:      o.httpClient,
	}
	if o.token != "" {
		token := o.token
		cfg.BeforeRequest = func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return &Client{http: planhttp.NewClient(cfg)}
}

// Members implements Fetcher, walking the paginated roster endpoint.
func (c *Client) Members(ctx context.Context, organization string) ([]Member, error) {
	it := planhttp.NewPageIterator(func(ctx context.Context, page int) ([]Member, bool, error) {
		path := fmt.Sprintf("/teams/?organization_name=%s&page=%d&per_page=%d",
			url.QueryEscape(organization), page+1, membersPerPage)
		var resp membersPage
		if err := c.http.Get(ctx, path, &resp); err != nil {
			return nil, false, err
		}
		return resp.Members, resp.HasMore, nil
	})

	members, err := it.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch roster for %q: %w", organization, err)
	}
	return members, nil
}

// StaticFetcher serves rosters from memory. Useful for tests and offline
// runs.
type StaticFetcher struct {
	Rosters map[string][]Member
}

// Members implements Fetcher. Unknown organizations get an empty roster,
// matching the backend's behavior for orgs with no team configured.
func (f *StaticFetcher) Members(_ context.Context, organization string) ([]Member, error) {
	if f == nil || f.Rosters == nil {
		return nil, nil
	}
	return f.Rosters[organization], nil
}
