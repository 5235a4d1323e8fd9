package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/jwebster45206/constraint/internal/handlers"
)

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

// listScenarioFiles returns the sorted, distinct scenario files the API knows
// about.
func listScenarioFiles(client *http.Client, baseURL string) ([]string, error) {
	resp, err := client.Get(baseURL + "/v1/scenarios")
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var scenarioMap map[string]string
	if err := json.Unmarshal(body, &scenarioMap); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var files []string
	for _, file := range scenarioMap {
		if !seen[file] {
			seen[file] = true
			files = append(files, file)
		}
	}
	sort.Strings(files)
	return files, nil
}

// generate asks the API for a new run. An empty scenarioFile draws from every
// scenario; an empty seed lets the API pick one.
func generate(client *http.Client, baseURL, scenarioFile, seed string, desired []string) (*handlers.GenerateResponse, error) {
	req := handlers.GenerateRequest{DesiredItems: desired, Seed: seed}
	if scenarioFile != "" {
		req.Scenarios = []string{scenarioFile}
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(baseURL+"/v1/generate", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp handlers.ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil || errorResp.Error == "" {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to generate: %s", errorResp.Error)
	}

	var run handlers.GenerateResponse
	if err := json.Unmarshal(body, &run); err != nil {
		return nil, fmt.Errorf("failed to parse generate response: %w", err)
	}
	return &run, nil
}
