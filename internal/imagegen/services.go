package imagegen

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Service base endpoints. Four of the five adapters synthesize
// parameterized URLs against these hosts; "success" means a well-formed URL,
// not a verified render.
const (
	pollinationsBaseURL = "https://image.pollinations.ai/prompt"
	picsumBaseURL       = "https://picsum.photos"
	unsplashBaseURL     = "https://source.unsplash.com"
	loremFlickrBaseURL  = "https://loremflickr.com"
	robohashBaseURL     = "https://robohash.org"
	placeholderBaseURL  = "https://via.placeholder.com"
	dummyImageBaseURL   = "https://dummyimage.com"
)

// seedFor derives a per-image seed from the wall clock, the image index, and
// the prompt. The xxhash term keeps seeds apart when several requests land in
// the same millisecond.
func seedFor(prompt string, index, step int) int64 {
	return time.Now().UnixMilli() + int64(index*step) + int64(xxhash.Sum64String(prompt)%1000)
}

// PollinationsService is the primary generator. Richest parameterization:
// it rotates through three URL variants (plain, flux model hint, enhance).
type PollinationsService struct{}

func (PollinationsService) Name() string { return "Pollinations AI" }

func (PollinationsService) Generate(_ context.Context, prompt string, width, height, remaining int) ([]string, error) {
	urls := make([]string, 0, remaining)
	encoded := url.PathEscape(prompt)

	for i := 0; i < remaining; i++ {
		seed := seedFor(prompt, i, 1000)
		base := fmt.Sprintf("%s/%s?width=%d&height=%d&seed=%d", pollinationsBaseURL, encoded, width, height, seed)
		variants := []string{
			base,
			base + "&model=flux",
			base + "&enhance=1",
		}
		urls = append(urls, variants[i%len(variants)])
	}
	return urls, nil
}

// PicsumHybridService mixes seeded picsum photos with keyword-driven
// unsplash source URLs.
type PicsumHybridService struct{}

func (PicsumHybridService) Name() string { return "Picsum Hybrid" }

func (PicsumHybridService) Generate(_ context.Context, prompt string, width, height, remaining int) ([]string, error) {
	urls := make([]string, 0, remaining)
	keywords := Keywords(prompt)

	for i := 0; i < remaining; i++ {
		seed := seedFor(prompt, i, 1500)
		keyword := "nature"
		if len(keywords) > 0 {
			keyword = keywords[i%len(keywords)]
		}
		options := []string{
			fmt.Sprintf("%s/%d/%d?random=%d", picsumBaseURL, width, height, seed),
			fmt.Sprintf("%s/%dx%d/?%s&sig=%d", unsplashBaseURL, width, height, url.QueryEscape(keyword), seed),
			fmt.Sprintf("%s/seed/%d/%d/%d", picsumBaseURL, seed, width, height),
		}
		urls = append(urls, options[i%len(options)])
	}
	return urls, nil
}

// LoremFlickrService maps prompt keywords onto loremflickr topics.
type LoremFlickrService struct{}

func (LoremFlickrService) Name() string { return "Lorem Flickr" }

func (LoremFlickrService) Generate(_ context.Context, prompt string, width, height, remaining int) ([]string, error) {
	urls := make([]string, 0, remaining)
	keywords := Keywords(prompt)

	for i := 0; i < remaining; i++ {
		keyword := "abstract"
		if len(keywords) > 0 {
			keyword = keywords[i%len(keywords)]
		}
		seed := seedFor(prompt, i, 2000)
		urls = append(urls, fmt.Sprintf("%s/%d/%d/%s?random=%d", loremFlickrBaseURL, width, height, url.QueryEscape(keyword), seed))
	}
	return urls, nil
}

// robohashMaxSize caps robohash dimensions independently of the requested
// size; the service renders poorly above it.
const robohashMaxSize = 400

// RobohashService draws identicon-style art seeded by the prompt itself.
type RobohashService struct{}

func (RobohashService) Name() string { return "Robohash Generator" }

func (RobohashService) Generate(_ context.Context, prompt string, width, height, remaining int) ([]string, error) {
	urls := make([]string, 0, remaining)
	sets := []string{"set1", "set2", "set3", "set4", "set5"}

	w := min(width, robohashMaxSize)
	h := min(height, robohashMaxSize)

	for i := 0; i < remaining; i++ {
		seed := url.QueryEscape(fmt.Sprintf("%s%d%d", prompt, i, time.Now().UnixMilli()))
		urls = append(urls, fmt.Sprintf("%s/%s?size=%dx%d&set=%s", robohashBaseURL, seed, w, h, sets[i%len(sets)]))
	}
	return urls, nil
}

// PlaceholderService is the guaranteed fallback. It performs no network call
// and cannot fail, which is what makes an empty orchestrator result
// unreachable.
type PlaceholderService struct{}

func (PlaceholderService) Name() string { return "Guaranteed Placeholder" }

func (PlaceholderService) Generate(_ context.Context, prompt string, width, height, remaining int) ([]string, error) {
	urls := make([]string, 0, remaining)

	for i := 0; i < remaining; i++ {
		seed := seedFor(prompt, i, 3000)
		options := []string{
			fmt.Sprintf("%s/%d/%d?random=%d", picsumBaseURL, width, height, seed),
			fmt.Sprintf("%s/%dx%d/4f46e5/ffffff?text=%s", placeholderBaseURL, width, height, url.QueryEscape(fmt.Sprintf("Generated Image %d", i+1))),
			fmt.Sprintf("%s/%dx%d/6366f1/ffffff&text=%s", dummyImageBaseURL, width, height, url.QueryEscape(fmt.Sprintf("AI Art %d", i+1))),
		}
		urls = append(urls, options[i%len(options)])
	}
	return urls, nil
}
