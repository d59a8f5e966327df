package features

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eval-bench/eval-bench/cmd/eval_bench/server"
	"github.com/eval-bench/eval-bench/internal/config"
	"github.com/eval-bench/eval-bench/internal/gateway"
	"github.com/eval-bench/eval-bench/internal/logging"
	"github.com/eval-bench/eval-bench/internal/queue"
	"github.com/eval-bench/eval-bench/internal/runstore"
	"github.com/eval-bench/eval-bench/internal/runtimes"
	"github.com/eval-bench/eval-bench/internal/validation"

	"github.com/Jeffail/gabs/v2"
	"github.com/cucumber/godog"
)

var (
	// api holds the shared server connection for all the scenarios
	api *apiFeature
)

type apiFeature struct {
	baseURL    *url.URL
	server     *server.Server
	gateway    *gateway.Gateway
	httpServer *http.Server
	client     *http.Client
}

// scenarioConfig isolates request state per scenario so scenarios do not
// observe each other's responses.
type scenarioConfig struct {
	scenarioName string
	apiFeature   *apiFeature
	response     *http.Response
	body         []byte

	lastRunID string
}

func logDebug(format string, a ...any) {
	fmt.Printf(format, a...)
}

func createApiFeature() (*apiFeature, error) {
	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	if serverURL := os.Getenv("SERVER_URL"); serverURL != "" {
		uri, err := url.Parse(serverURL)
		if err != nil {
			return nil, fmt.Errorf("invalid SERVER_URL: %v", err)
		}
		return &apiFeature{client: client, baseURL: uri}, nil
	}

	port := 8081
	if sport := os.Getenv("PORT"); sport != "" {
		if eport, err := strconv.Atoi(sport); err != nil {
			logDebug("Invalid PORT: %v\n", err.Error())
		} else {
			port = eport
		}
	}

	baseURL, err := url.Parse(fmt.Sprintf("http://localhost:%d", port))
	if err != nil {
		return nil, fmt.Errorf("invalid baseURL: %v", err)
	}

	api := &apiFeature{client: client, baseURL: baseURL}
	if err := api.startLocalServer(port); err != nil {
		return nil, err
	}
	return api, nil
}

func (a *apiFeature) startLocalServer(port int) error {
	logger, _, err := logging.NewLogger()
	if err != nil {
		return err
	}
	validate, err := validation.NewValidator()
	if err != nil {
		return fmt.Errorf("failed to create validator: %w", err)
	}
	serviceConfig, err := config.LoadConfig(logger, "0.0.1", "local", time.Now().Format(time.RFC3339), "..", "../../tests")
	if err != nil {
		return fmt.Errorf("failed to load service config: %w", err)
	}
	serviceConfig.Service.Port = port
	serviceConfig.Service.LocalMode = true // set local mode for testing

	executor, err := runtimes.NewExecutor(logger)
	if err != nil {
		return fmt.Errorf("failed to create executor: %w", err)
	}

	queueConf := config.QueueConfig{}
	if serviceConfig.Queue != nil {
		queueConf = *serviceConfig.Queue
	}
	queueConf = queueConf.WithDefaults()

	store := runstore.NewStore(logger)
	scheduler := queue.NewScheduler(logger, store, executor, nil, queueConf)
	a.gateway = gateway.NewGateway(logger, store, scheduler, queueConf.HeartbeatInterval)
	store.SetNotify(a.gateway.OnRunEvent)
	scheduler.SetNotify(a.gateway.OnQueueChanged)
	a.gateway.Start()

	a.server, err = server.NewServer(logger, serviceConfig, scheduler, a.gateway, nil, validate)
	if err != nil {
		return err
	}

	handler, err := a.server.SetupRoutes()
	if err != nil {
		return err
	}
	a.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	// Start server in background
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}

	go func() {
		_ = a.httpServer.Serve(listener)
	}()

	return nil
}

func (a *apiFeature) cleanup() {
	if a.gateway != nil {
		a.gateway.Close()
	}
	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = a.httpServer.Shutdown(ctx)
	}
}

func (tc *scenarioConfig) theServiceIsRunning(ctx context.Context) error {
	for range 10 {
		if err := tc.checkHealthEndpoint(); err != nil {
			logDebug("Error checking health endpoint: %v\n", err.Error())
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}

	return nil
}

func (tc *scenarioConfig) checkHealthEndpoint() error {
	if err := tc.iSendARequestTo("GET", "/api/v1/health"); err != nil {
		return fmt.Errorf("failed to send health check request: %w for URL %s", err, tc.apiFeature.baseURL.String())
	}
	if tc.response.StatusCode != 200 {
		return fmt.Errorf("expected status 200, got %d", tc.response.StatusCode)
	}

	match := `"status": "healthy"`
	if !strings.Contains(string(tc.body), match) {
		return fmt.Errorf("expected body to contain %s, got %s", match, string(tc.body))
	}

	return nil
}

func (tc *scenarioConfig) iSendARequestTo(method, path string) error {
	return tc.iSendARequestToWithBody(method, path, "")
}

func (tc *scenarioConfig) iSendARequestToWithBody(method, path, body string) error {
	if strings.Contains(path, "{run_id}") {
		if tc.lastRunID == "" {
			return fmt.Errorf("no run was submitted in this scenario")
		}
		path = strings.Replace(path, "{run_id}", tc.lastRunID, 1)
	}

	target := fmt.Sprintf("%s%s", tc.apiFeature.baseURL.String(), path)
	var entity io.Reader
	if body != "" {
		entity = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, target, entity)
	if err != nil {
		return err
	}
	if entity != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	tc.response, err = tc.apiFeature.client.Do(req)
	if err != nil {
		return err
	}

	tc.body, err = io.ReadAll(tc.response.Body)
	if err != nil {
		return err
	}
	defer tc.response.Body.Close()

	// remember the submitted run so later steps can address it via {run_id}
	if method == http.MethodPost && strings.HasSuffix(path, "/queue/runs") && tc.response.StatusCode < 300 {
		parsed, err := gabs.ParseJSON(tc.body)
		if err != nil {
			return fmt.Errorf("failed to parse submit response: %w", err)
		}
		if runID, ok := parsed.Path("runs.0.run_id").Data().(string); ok {
			tc.lastRunID = runID
		}
	}

	return nil
}

func (tc *scenarioConfig) theResponseStatusShouldBe(status int) error {
	if tc.response.StatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, tc.response.StatusCode, string(tc.body))
	}
	return nil
}

func (tc *scenarioConfig) theResponseShouldBeJSON() error {
	contentType := tc.response.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return fmt.Errorf("expected JSON content type, got %s", contentType)
	}

	var js interface{}
	if err := json.Unmarshal(tc.body, &js); err != nil {
		return fmt.Errorf("response is not valid JSON: %v", err)
	}

	return nil
}

func (tc *scenarioConfig) theResponsePathShouldBe(path, value string) error {
	parsed, err := gabs.ParseJSON(tc.body)
	if err != nil {
		return fmt.Errorf("response is not valid JSON: %v", err)
	}
	container := parsed.Path(path)
	if container == nil {
		return fmt.Errorf("response does not contain path %s: %s", path, string(tc.body))
	}
	actual := fmt.Sprintf("%v", container.Data())
	if actual != value {
		return fmt.Errorf("expected %s to be %s, got %s", path, value, actual)
	}
	return nil
}

func (tc *scenarioConfig) theResponsePathShouldHaveElements(path string, count int) error {
	parsed, err := gabs.ParseJSON(tc.body)
	if err != nil {
		return fmt.Errorf("response is not valid JSON: %v", err)
	}
	container := parsed.Path(path)
	if container == nil {
		return fmt.Errorf("response does not contain path %s: %s", path, string(tc.body))
	}
	children := container.Children()
	if len(children) != count {
		return fmt.Errorf("expected %d elements at %s, got %d: %s", count, path, len(children), string(tc.body))
	}
	return nil
}

func (tc *scenarioConfig) theResponseShouldContain(key string) error {
	parsed, err := gabs.ParseJSON(tc.body)
	if err != nil {
		return fmt.Errorf("response is not valid JSON: %v", err)
	}
	if !parsed.ExistsP(key) {
		return fmt.Errorf("response does not contain key %s: %s", key, string(tc.body))
	}
	return nil
}

func (tc *scenarioConfig) theResponseShouldContainPrometheusMetrics() error {
	bodyStr := string(tc.body)
	if !strings.Contains(bodyStr, "# HELP") || !strings.Contains(bodyStr, "# TYPE") {
		return fmt.Errorf("response does not appear to be Prometheus metrics format")
	}
	return nil
}

func (tc *scenarioConfig) theMetricsShouldInclude(metricName string) error {
	if !strings.Contains(string(tc.body), metricName) {
		return fmt.Errorf("metrics do not include %s", metricName)
	}
	return nil
}

func (tc *scenarioConfig) saveScenarioName(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
	tc.scenarioName = sc.Name
	return ctx, nil
}

// queueCleanup cancels any queue items left behind by the scenario so the
// next scenario starts from an empty queue.
func (tc *scenarioConfig) queueCleanup(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
	if cleanupErr := tc.iSendARequestTo("DELETE", "/api/v1/queue"); cleanupErr != nil {
		return ctx, fmt.Errorf("failed to cancel the queue after scenario %s: %w", tc.scenarioName, cleanupErr)
	}
	if tc.response.StatusCode != 200 {
		return ctx, fmt.Errorf("expected status 200 cancelling the queue, got %d", tc.response.StatusCode)
	}
	return ctx, nil
}

func createScenarioConfig(apiConfig *apiFeature) *scenarioConfig {
	conf := new(scenarioConfig)
	conf.apiFeature = apiConfig
	return conf
}

func setUpTestConf() {
	apiFeature, err := createApiFeature()
	if err != nil {
		panic(fmt.Errorf("failed to create API feature: %v", err))
	}
	api = apiFeature
}

func waitForService() {
	tc := createScenarioConfig(api)
	for range 10 {
		if err := tc.checkHealthEndpoint(); err != nil {
			logDebug("Error checking health endpoint: %v\n", err.Error())
			time.Sleep(1 * time.Second)
		} else {
			return
		}
	}
	panic("Stopped API Tests. Service is not ready for testing.\n")
}

func tidyUpTests() {
	if api != nil {
		api.cleanup()
	}
}

func InitializeTestSuite(ctx *godog.TestSuiteContext) {
	ctx.BeforeSuite(setUpTestConf)
	ctx.BeforeSuite(waitForService)
	ctx.AfterSuite(tidyUpTests)
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := createScenarioConfig(api)

	ctx.Before(tc.saveScenarioName)
	ctx.After(tc.queueCleanup)

	ctx.Step(`^the service is running$`, tc.theServiceIsRunning)
	ctx.Step(`^I send a (GET|DELETE|POST) request to "([^"]*)"$`, tc.iSendARequestTo)
	ctx.Step(`^I send a (POST|PUT|PATCH) request to "([^"]*)" with body '([^']*)'$`, tc.iSendARequestToWithBody)
	ctx.Step(`^the response code should be (\d+)$`, tc.theResponseStatusShouldBe)
	ctx.Step(`^the response should be JSON$`, tc.theResponseShouldBeJSON)
	ctx.Step(`^the response path "([^"]*)" should be "([^"]*)"$`, tc.theResponsePathShouldBe)
	ctx.Step(`^the response path "([^"]*)" should have (\d+) elements$`, tc.theResponsePathShouldHaveElements)
	ctx.Step(`^the response should contain "([^"]*)"$`, tc.theResponseShouldContain)
	ctx.Step(`^the response should contain Prometheus metrics$`, tc.theResponseShouldContainPrometheusMetrics)
	ctx.Step(`^the metrics should include "([^"]*)"$`, tc.theMetricsShouldInclude)
}
