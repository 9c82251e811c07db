// Command driver_compare replays read requests against two deployments of the
// club API and reports response differences. It is used before a gateway
// driver cutover (for example redis to postgres) to verify that both backends
// serve the same collections.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"
)

type target struct {
	Method   string `json:"method"`
	Path     string `json:"path"`
	Critical bool   `json:"critical"`
}

type targetsFile struct {
	Targets []target `json:"targets"`
}

// defaultTargets covers every collection read the mobile client performs.
var defaultTargets = []target{
	{Method: http.MethodGet, Path: "/api/v1/resources", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/assignments", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/assignments/pending", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/events", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/leaderboard", Critical: true},
	{Method: http.MethodGet, Path: "/api/v1/chat/messages", Critical: false},
	{Method: http.MethodGet, Path: "/api/v1/club", Critical: true},
	{Method: http.MethodGet, Path: "/health", Critical: false},
}

// volatileKeys never compare equal across deployments and are stripped before
// the deep comparison.
var volatileKeys = map[string]bool{
	"requestId":   true,
	"fetchedAt":   true,
	"refreshedAt": true,
	"updatedAt":   true,
}

type comparison struct {
	Target            target
	PrimaryStatus     int
	CandidateStatus   int
	StatusMatch       bool
	BodyMatch         bool
	Error             error
	DurationPrimary   time.Duration
	DurationCandidate time.Duration
}

func main() {
	var (
		primaryBase   string
		candidateBase string
		token         string
		targetsPath   string
		timeout       time.Duration
	)

	flag.StringVar(&primaryBase, "primary", "http://localhost:8080", "base URL of the current deployment")
	flag.StringVar(&candidateBase, "candidate", "http://localhost:8081", "base URL of the deployment under test")
	flag.StringVar(&token, "token", os.Getenv("CLUB_API_TOKEN"), "bearer token for authenticated routes")
	flag.StringVar(&targetsPath, "targets", "", "optional JSON targets file overriding the built-in set")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets, err := loadTargets(targetsPath)
	if err != nil {
		log.Fatalf("failed to load targets: %v", err)
	}

	client := &http.Client{Timeout: timeout}
	var (
		comparisons  []comparison
		breaking     int
		optionalDiff int
	)

	for _, t := range targets {
		comp := compareTarget(client, primaryBase, candidateBase, token, t)
		if comp.Error != nil || !comp.StatusMatch || !comp.BodyMatch {
			if t.Critical {
				breaking++
			} else {
				optionalDiff++
			}
		}
		comparisons = append(comparisons, comp)
	}

	printReport(comparisons)

	fmt.Printf("Breaking diffs: %d, Optional diffs: %d\n", breaking, optionalDiff)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	if path == "" {
		return defaultTargets, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg targetsFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func compareTarget(client *http.Client, primaryBase, candidateBase, token string, tgt target) comparison {
	comp := comparison{Target: tgt}
	primaryResp, primaryDur, primaryErr := performRequest(client, primaryBase, token, tgt)
	candidateResp, candidateDur, candidateErr := performRequest(client, candidateBase, token, tgt)
	comp.DurationPrimary = primaryDur
	comp.DurationCandidate = candidateDur

	if primaryErr != nil {
		comp.Error = fmt.Errorf("primary request failed: %w", primaryErr)
		return comp
	}
	if candidateErr != nil {
		comp.Error = fmt.Errorf("candidate request failed: %w", candidateErr)
		return comp
	}

	comp.PrimaryStatus = primaryResp.StatusCode
	comp.CandidateStatus = candidateResp.StatusCode
	comp.StatusMatch = comp.PrimaryStatus == comp.CandidateStatus

	defer primaryResp.Body.Close()
	defer candidateResp.Body.Close()

	primaryBody, err := io.ReadAll(primaryResp.Body)
	if err != nil {
		comp.Error = fmt.Errorf("read primary body: %w", err)
		return comp
	}
	candidateBody, err := io.ReadAll(candidateResp.Body)
	if err != nil {
		comp.Error = fmt.Errorf("read candidate body: %w", err)
		return comp
	}

	comp.BodyMatch = bodiesEqual(primaryBody, candidateBody)

	return comp
}

func performRequest(client *http.Client, base, token string, tgt target) (*http.Response, time.Duration, error) {
	if client == nil {
		return nil, 0, errors.New("nil client")
	}
	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return nil, 0, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	return resp, time.Since(start), nil
}

func bodiesEqual(a, b []byte) bool {
	if bytes.Equal(bytes.TrimSpace(a), bytes.TrimSpace(b)) {
		return true
	}

	var aj, bj interface{}
	if err := json.Unmarshal(a, &aj); err != nil {
		return false
	}
	if err := json.Unmarshal(b, &bj); err != nil {
		return false
	}
	normalize(&aj)
	normalize(&bj)
	return reflect.DeepEqual(aj, bj)
}

// normalize strips volatile keys and collapses integral floats so that two
// JSON encodings of the same collection compare equal.
func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for k, v2 := range val {
			if volatileKeys[k] {
				delete(val, k)
				continue
			}
			normalize(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func printReport(results []comparison) {
	fmt.Println("Driver Compare Report")
	fmt.Println("======================")
	for _, res := range results {
		status := "OK"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.StatusMatch || !res.BodyMatch {
			status = "DIFF"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		fmt.Printf("  Primary: %d (%s)\n", res.PrimaryStatus, res.DurationPrimary)
		fmt.Printf("  Candidate: %d (%s)\n", res.CandidateStatus, res.DurationCandidate)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
		} else {
			fmt.Printf("  Status match: %t | Body match: %t | Critical: %t\n", res.StatusMatch, res.BodyMatch, res.Target.Critical)
		}
	}
}
