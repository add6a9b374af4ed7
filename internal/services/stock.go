package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	pexelsSearchURL = "https://api.pexels.com/videos/search"
	stockCacheTTL   = 5 * time.Minute
)

var validOrientations = map[string]struct{}{
	"landscape": {},
	"portrait":  {},
	"square":    {},
}

// StockVideo is one candidate background clip from the stock provider.
type StockVideo struct {
	URL         string      `json:"url"`
	ID          string      `json:"id"`
	Width       int         `json:"width"`
	Height      int         `json:"height"`
	Duration    int         `json:"duration"`
	Thumbnail   string      `json:"thumbnail"`
	PreviewURL  string      `json:"previewUrl"`
	PageURL     string      `json:"pageUrl"`
	Source      string      `json:"source"`
	Attribution Attribution `json:"attribution"`
}

// Attribution credits the clip's author, required by the Pexels license.
type Attribution struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type stockCacheEntry struct {
	expires time.Time
	videos  []StockVideo
}

// StockSearch queries Pexels video search with a short-TTL cache in front.
// Redis is the shared cache when configured; otherwise an in-process map
// serves the same purpose for a single instance.
type StockSearch struct {
	apiKey  string
	baseURL string
	client  *http.Client
	rdb     *redis.Client

	mu       sync.Mutex
	memCache map[string]stockCacheEntry
}

func NewStockSearch(apiKey string, rdb *redis.Client) *StockSearch {
	return &StockSearch{
		apiKey:   apiKey,
		baseURL:  pexelsSearchURL,
		client:   &http.Client{Timeout: 15 * time.Second},
		rdb:      rdb,
		memCache: make(map[string]stockCacheEntry),
	}
}

type pexelsResponse struct {
	Videos []pexelsVideo `json:"videos"`
}

type pexelsVideo struct {
	ID       int64  `json:"id"`
	URL      string `json:"url"`
	Image    string `json:"image"`
	Duration int    `json:"duration"`
	User     struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"user"`
	VideoFiles []pexelsVideoFile `json:"video_files"`
}

type pexelsVideoFile struct {
	Link   string `json:"link"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Search returns candidate clips for a keyword. orientation narrows results
// when it is one of landscape, portrait, or square; anything else searches
// unconstrained. Provider errors surface to the caller; cache misses never do.
func (s *StockSearch) Search(ctx context.Context, keyword, orientation string, perPage, page int) ([]StockVideo, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("stock search is not configured")
	}
	if perPage <= 0 {
		perPage = 3
	}
	if page <= 0 {
		page = 1
	}
	orientation = strings.ToLower(strings.TrimSpace(orientation))
	if _, ok := validOrientations[orientation]; !ok {
		orientation = ""
	}

	cacheKey := fmt.Sprintf("pexels:%s:%s:%d:%d", orientation, keyword, perPage, page)
	if videos, ok := s.cacheGet(ctx, cacheKey); ok {
		return videos, nil
	}

	params := url.Values{}
	params.Set("query", keyword)
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))
	if orientation != "" {
		params.Set("orientation", orientation)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create stock search request: %w", err)
	}
	req.Header.Set("Authorization", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stock search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("stock search returned status %d: %s", resp.StatusCode, truncateString(string(body), 200))
	}

	var parsed pexelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse stock search response: %w", err)
	}

	videos := make([]StockVideo, 0, len(parsed.Videos))
	for _, v := range parsed.Videos {
		files := append([]pexelsVideoFile(nil), v.VideoFiles...)
		sort.SliceStable(files, func(a, b int) bool {
			return files[a].Width*files[a].Height > files[b].Width*files[b].Height
		})
		if orientation != "" {
			filtered := files[:0:0]
			for _, f := range files {
				if matchesOrientation(f.Width, f.Height, orientation) {
					filtered = append(filtered, f)
				}
			}
			if len(filtered) > 0 {
				files = filtered
			}
		}
		if len(files) == 0 {
			continue
		}

		best := files[0]
		preview := files[len(files)-1].Link
		if preview == "" {
			preview = best.Link
		}
		videos = append(videos, StockVideo{
			URL:        best.Link,
			ID:         strconv.FormatInt(v.ID, 10),
			Width:      best.Width,
			Height:     best.Height,
			Duration:   v.Duration,
			Thumbnail:  v.Image,
			PreviewURL: preview,
			PageURL:    v.URL,
			Source:     "pexels",
			Attribution: Attribution{
				Name: v.User.Name,
				URL:  v.User.URL,
			},
		})
	}

	s.cacheSet(ctx, cacheKey, videos)
	return videos, nil
}

// matchesOrientation checks a file's dimensions against the requested
// orientation. Square tolerates up to 10% difference between sides.
func matchesOrientation(width, height int, orientation string) bool {
	if width == 0 || height == 0 {
		return false
	}
	switch orientation {
	case "landscape":
		return width >= height
	case "portrait":
		return height >= width
	case "square":
		diff := width - height
		if diff < 0 {
			diff = -diff
		}
		minSide := width
		if height < width {
			minSide = height
		}
		return float64(diff) <= float64(minSide)*0.1
	}
	return true
}

func (s *StockSearch) cacheGet(ctx context.Context, key string) ([]StockVideo, bool) {
	if s.rdb != nil {
		data, err := s.rdb.Get(ctx, key).Bytes()
		if err == nil {
			var videos []StockVideo
			if json.Unmarshal(data, &videos) == nil {
				return videos, true
			}
		} else if err != redis.Nil {
			log.Printf("[Stock] Redis cache read failed: %v", err)
		}
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.memCache[key]
	if !ok || time.Now().After(entry.expires) {
		delete(s.memCache, key)
		return nil, false
	}
	return entry.videos, true
}

func (s *StockSearch) cacheSet(ctx context.Context, key string, videos []StockVideo) {
	if s.rdb != nil {
		data, err := json.Marshal(videos)
		if err != nil {
			return
		}
		if err := s.rdb.Set(ctx, key, data, stockCacheTTL).Err(); err != nil {
			log.Printf("[Stock] Redis cache write failed: %v", err)
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.memCache[key] = stockCacheEntry{expires: time.Now().Add(stockCacheTTL), videos: videos}
}
