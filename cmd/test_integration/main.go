package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

func main() {
	baseURL := os.Getenv("LEADBLITZ_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	// Wait for server to start
	time.Sleep(2 * time.Second)

	fmt.Println("Starting smoke run against", baseURL)
	// resty keeps the session cookie in its jar between calls.
	client := resty.New().SetBaseURL(baseURL).SetTimeout(30 * time.Second)

	email := fmt.Sprintf("smoke-%d@leadblitz.test", time.Now().Unix())

	step("1. Health")(client.R().Get("/health"))
	step("2. Register")(client.R().
		SetBody(map[string]string{"email": email, "password": "smoke-password", "full_name": "Smoke Run"}).
		Post("/api/auth/register"))
	step("3. Me")(client.R().Get("/api/auth/me"))
	step("4. Credits")(client.R().Get("/api/credits"))

	csv := "business_name,website_url,email\nExample,example.com,info@example.com\n"
	step("5. Import CSV")(client.R().
		SetFileReader("file", "smoke.csv", strings.NewReader(csv)).
		Post("/api/leads/import-csv"))
	step("6. Leads")(client.R().SetQueryParam("view", "all").Get("/api/leads"))
	step("7. Stats")(client.R().Get("/api/stats"))
	step("8. Export")(client.R().SetQueryParam("format", "csv").Get("/api/export"))
	step("9. Logout")(client.R().Post("/api/auth/logout"))

	fmt.Println("Smoke run PASSED")
}

// step checks one call and exits on failure.
func step(name string) func(*resty.Response, error) {
	fmt.Println(name + "...")
	return func(resp *resty.Response, err error) {
		check(name, resp, err)
	}
}

func check(name string, resp *resty.Response, err error) {
	if err != nil {
		fmt.Printf("FAILED: %s: %v\n", name, err)
		os.Exit(1)
	}
	if resp.StatusCode() != 200 {
		fmt.Printf("FAILED: %s: status %d: %s\n", name, resp.StatusCode(), resp.String())
		os.Exit(1)
	}
	body := resp.String()
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	fmt.Printf("PASSED: %s\nResponse: %s\n", name, body)
}
