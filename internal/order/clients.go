package order

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RestaurantDirectory answers whether a restaurant exists. The restaurant
// service itself lives elsewhere.
type RestaurantDirectory interface {
	RestaurantExists(ctx context.Context, id string) (bool, error)
}

type HTTPDirectory struct {
	HTTP    *http.Client
	BaseURL string
}

func NewHTTPDirectory(baseURL string) *HTTPDirectory {
	return &HTTPDirectory{
		HTTP:    &http.Client{Timeout: 5 * time.Second},
		BaseURL: strings.TrimRight(baseURL, "/"),
	}
}

// RestaurantExists calls GET {base}/restaurants/{id}: 200 means yes, 404 means no.
func (d *HTTPDirectory) RestaurantExists(ctx context.Context, id string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/restaurants/%s", d.BaseURL, url.PathEscape(id)), nil)
	if err != nil {
		return false, err
	}
	res, err := d.HTTP.Do(req)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("restaurant lookup: %s", res.Status)
	}
}
