package headhunter

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL       = "https://api.hh.ru"
	mineResumeID = "mine"
	userAgent    = "jobrank/0.1 (jobrank@users.noreply.github.com)"
	// Max value for search per page.
	perPage = "100"

	defaultPageDelay = 250 * time.Millisecond
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
	// PageDelay is the pause between paginated and per-vacancy requests.
	PageDelay time.Duration
}

// New returns a client. The token is optional for vacancy search and required for
// resumes and negotiations.
func New(logger *zap.Logger, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:  strings.TrimSpace(token),
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
		PageDelay: defaultPageDelay,
	}
}

func (c *Client) Search(ctx context.Context, params *SearchParams) (*Vacancies, error) {
	return c.search(ctx, params)
}

func (c *Client) GetMineResumes(ctx context.Context) (*Resumes, error) {
	return c.getResumes(ctx, mineResumeID)
}
