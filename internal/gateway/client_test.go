package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"confluence-coach/internal/config"
	coacherrors "confluence-coach/internal/errors"
	"confluence-coach/internal/models"
	"confluence-coach/internal/resilience"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(
		config.GatewayConfig{BaseURL: server.URL, Timeout: 5 * time.Second},
		config.CoachCredentials{Token: "test-token"},
		zerolog.Nop(),
	)
}

func TestValidateTrendContract(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/validate_trend" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("auth header = %q", got)
		}
		var body models.TrendAnalysisData
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Pair != "EURUSD" || body.WeeklyTrend != models.TrendBullish {
			t.Errorf("body = %+v", body)
		}
		json.NewEncoder(w).Encode(models.TrendVerdict{
			Confidence:     82,
			Feedback:       "strong alignment",
			Recommendation: models.RecommendProceed,
			Warnings:       []string{"news in 2h"},
		})
	}))

	verdict, err := client.ValidateTrend(context.Background(), models.TrendAnalysisData{
		Pair:          "EURUSD",
		WeeklyTrend:   models.TrendBullish,
		DailyTrend:    models.TrendBullish,
		FourHourTrend: models.TrendRanging,
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if verdict.Confidence != 82 || !verdict.AutoAdvance() || len(verdict.Warnings) != 1 {
		t.Errorf("verdict = %+v", verdict)
	}
}

func TestValidateTrendRejectsUnknownRecommendation(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"confidence":     50,
			"recommendation": "MAYBE",
		})
	}))

	_, err := client.ValidateTrend(context.Background(), models.TrendAnalysisData{Pair: "EURUSD"})
	var ge *coacherrors.GatewayError
	if !coacherrors.As(err, &ge) {
		t.Fatalf("err = %v, want gateway error on unknown recommendation", err)
	}
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		check     func(t *testing.T, err error)
		retryable bool
	}{
		{
			"unauthorized", http.StatusUnauthorized, "",
			func(t *testing.T, err error) {
				if !coacherrors.Is(err, coacherrors.ErrNotAuthenticated) {
					t.Errorf("err = %v", err)
				}
			},
			false,
		},
		{
			"rate limited", http.StatusTooManyRequests, "",
			func(t *testing.T, err error) {
				if !coacherrors.Is(err, coacherrors.ErrRateLimited) {
					t.Errorf("err = %v", err)
				}
			},
			true,
		},
		{
			"server error", http.StatusBadGateway, "upstream exploded",
			func(t *testing.T, err error) {
				var ge *coacherrors.GatewayError
				if !coacherrors.As(err, &ge) {
					t.Fatalf("err = %v", err)
				}
				if ge.StatusCode != http.StatusBadGateway || ge.Message != "upstream exploded" {
					t.Errorf("gateway error = %+v", ge)
				}
			},
			true,
		},
		{
			"garbage body", http.StatusOK, "{not json",
			func(t *testing.T, err error) {
				var ge *coacherrors.GatewayError
				if !coacherrors.As(err, &ge) {
					t.Errorf("err = %v", err)
				}
			},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			_, err := client.CalculateRisk(context.Background(), models.RiskData{})
			if err == nil {
				t.Fatal("expected error")
			}
			tt.check(t, err)
			if got := coacherrors.IsRetryable(err); got != tt.retryable {
				t.Errorf("retryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestGetTradesEncodesQuery(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trades" {
			t.Errorf("path = %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("pair") != "GBPUSD" || q.Get("status") != "open" || q.Get("limit") != "10" {
			t.Errorf("query = %v", q)
		}
		json.NewEncoder(w).Encode(map[string][]models.Trade{
			"trades": {{ID: "t-1", Pair: "GBPUSD"}},
		})
	}))

	trades, err := client.GetTrades(context.Background(), TradeListOptions{Pair: "GBPUSD", Status: "open", Limit: 10})
	if err != nil {
		t.Fatalf("get trades: %v", err)
	}
	if len(trades) != 1 || trades[0].ID != "t-1" {
		t.Errorf("trades = %+v", trades)
	}
}

func TestLogOutcomeContract(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/log_outcome" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var report models.OutcomeReport
		if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
			t.Errorf("decode: %v", err)
		}
		if report.Outcome != models.OutcomeTargetHit {
			t.Errorf("report = %+v", report)
		}
		json.NewEncoder(w).Encode(models.OutcomeResult{PnL: 396, DisciplineViolation: true, ViolationMessage: "entered before AOI touch"})
	}))

	result, err := client.LogOutcome(context.Background(), models.OutcomeReport{
		TradeID:    "t-1",
		ActualExit: 1.0950,
		Outcome:    models.OutcomeTargetHit,
	})
	if err != nil {
		t.Fatalf("log outcome: %v", err)
	}
	if result.PnL != 396 || !result.DisciplineViolation {
		t.Errorf("result = %+v", result)
	}
}

func TestUploadScreenshotMultipart(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload_screenshot" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("pair"); got != "EURUSD" {
			t.Errorf("pair field = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("file field: %v", err)
		}
		defer file.Close()
		if header.Filename != "setup.png" {
			t.Errorf("filename = %q", header.Filename)
		}
		json.NewEncoder(w).Encode(UploadResult{Success: true, ScreenshotURL: "https://cdn.example/s/1.png", FileID: "f-1"})
	}))

	result, err := client.UploadScreenshot(context.Background(), "setup.png", []byte{0x89, 'P', 'N', 'G'}, "EURUSD")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !result.Success || result.ScreenshotURL == "" {
		t.Errorf("result = %+v", result)
	}
}

func TestNotificationEndpoints(t *testing.T) {
	var markedAll, markedOne bool
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/notifications":
			json.NewEncoder(w).Encode(NotificationList{
				Notifications: []models.Notification{{ID: "n-1", Type: models.NotifyAOIApproach}},
				UnreadCount:   1,
			})
		case "/notifications/n-1/read":
			markedOne = true
			w.WriteHeader(http.StatusNoContent)
		case "/notifications/read_all":
			markedAll = true
			w.WriteHeader(http.StatusNoContent)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	ctx := context.Background()

	list, err := client.GetNotifications(ctx, NotificationListOptions{UnreadOnly: true})
	if err != nil {
		t.Fatalf("get notifications: %v", err)
	}
	if list.UnreadCount != 1 {
		t.Errorf("list = %+v", list)
	}
	if err := client.MarkNotificationRead(ctx, "n-1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := client.MarkAllNotificationsRead(ctx); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if !markedOne || !markedAll {
		t.Error("read endpoints not hit")
	}
}

func TestBreakerFailsFastAfterServerFaults(t *testing.T) {
	var hits int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadGateway)
	}))
	ctx := context.Background()

	threshold := resilience.DefaultBreakerConfig().FailureThreshold
	for i := 0; i < threshold; i++ {
		if _, err := client.GetAnalysis(ctx); err == nil {
			t.Fatal("expected gateway error")
		}
	}
	if hits != threshold {
		t.Fatalf("hits = %d, want %d", hits, threshold)
	}

	_, err := client.GetAnalysis(ctx)
	if !coacherrors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("err = %v, want circuit open", err)
	}
	if hits != threshold {
		t.Errorf("open circuit still reached the server (%d hits)", hits)
	}
	if !coacherrors.IsRetryable(err) {
		t.Error("circuit-open error should stay in the retryable family")
	}
}
