package tracking

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"barterhub/internal/redisclient"
	"barterhub/internal/util"

	"go.uber.org/zap"
)

// Courier identifies a shipping provider classified from a tracking number
type Courier string

const (
	CourierJNE     Courier = "JNE"
	CourierJNT     Courier = "J&T Express"
	CourierSiCepat Courier = "SiCepat"
	CourierPOS     Courier = "Pos Indonesia"
	CourierUnknown Courier = "Unknown"
)

// Event is one entry in a shipment's progress timeline
type Event struct {
	Status   string    `json:"status"`
	Time     time.Time `json:"time"`
	Location string    `json:"location"`
	Current  bool      `json:"is_current"`
}

// Status is the result of one tracking lookup. It is advisory only:
// auto-resolution consults the Delivered flag, but code-based receipt
// confirmation never does.
type Status struct {
	TrackingNumber string  `json:"tracking_number"`
	Courier        Courier `json:"courier"`
	LastStatus     string  `json:"status"`
	Timeline       []Event `json:"timeline"`
	Delivered      bool    `json:"delivered"`
	Simulated      bool    `json:"simulated"`
}

// DetectCourier classifies a tracking number by prefix/length pattern.
// The heuristic can misclassify; Unknown always routes to simulation.
func DetectCourier(trackingNumber string) Courier {
	n := strings.ToUpper(strings.ReplaceAll(trackingNumber, " ", ""))

	if len(n) >= 10 && len(n) <= 15 &&
		(strings.HasPrefix(n, "JNE") || strings.HasPrefix(n, "CGK")) {
		return CourierJNE
	}

	if strings.HasPrefix(n, "JP") && len(n) == 12 {
		return CourierJNT
	}

	if strings.HasPrefix(n, "000") && len(n) >= 12 {
		return CourierSiCepat
	}

	for _, prefix := range []string{"PC", "EX", "CA", "CC"} {
		if strings.HasPrefix(n, prefix) {
			return CourierPOS
		}
	}

	return CourierUnknown
}

// isReceiptStatus is the receipt-keyword heuristic applied to status text
func isReceiptStatus(status string) bool {
	s := strings.ToLower(status)
	return strings.Contains(s, "delivered") || strings.Contains(s, "received")
}

// Adapter performs best-effort courier lookups with a deterministic
// simulated fallback. Lookup never returns an error to the caller.
type Adapter struct {
	httpClient *http.Client
	cache      *redisclient.Client
	cacheTTL   time.Duration
	logger     *zap.Logger
}

// NewAdapter creates a tracking adapter. cache may be nil, in which
// case results are not cached.
func NewAdapter(cache *redisclient.Client, cacheTTL time.Duration) *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     util.GetLogger(),
	}
}

// Lookup resolves a tracking number to a Status. Courier API failures
// and unclassifiable numbers degrade to the simulated generator.
func (a *Adapter) Lookup(ctx context.Context, trackingNumber string) *Status {
	ctx, span := util.StartSpan(ctx, "tracking.Lookup")
	defer span.End()

	if trackingNumber == "" {
		return nil
	}

	start := time.Now()
	defer func() {
		util.TrackingLookupLatency.Observe(time.Since(start).Seconds())
	}()

	if a.cache != nil {
		var cached Status
		if hit, err := a.cache.GetTrackingStatus(ctx, trackingNumber, &cached); err == nil && hit {
			return &cached
		}
	}

	courier := DetectCourier(trackingNumber)

	var status *Status
	var err error

	switch courier {
	case CourierJNT:
		status, err = a.lookupJNT(ctx, trackingNumber)
	case CourierSiCepat:
		status, err = a.lookupSiCepat(ctx, trackingNumber)
	default:
		// JNE and POS need registered API keys; treat like Unknown
		err = fmt.Errorf("no live lookup for courier %s", courier)
	}

	if err != nil || status == nil {
		if err != nil {
			a.logger.Warn("Courier lookup failed, using simulation",
				zap.String("tracking_number", trackingNumber),
				zap.String("courier", string(courier)),
				zap.Error(err))
		}
		util.TrackingFallbackTotal.WithLabelValues(string(courier)).Inc()
		status = SimulateTracking(trackingNumber, courier)
	}

	if a.cache != nil {
		if err := a.cache.SetTrackingStatus(ctx, trackingNumber, status, a.cacheTTL); err != nil {
			a.logger.Warn("Failed to cache tracking status", zap.Error(err))
		}
	}

	return status
}

type jntResponse struct {
	Success bool `json:"success"`
	Data    struct {
		LastStatus string `json:"last_status"`
		Details    []struct {
			Desc string `json:"desc"`
			Date string `json:"date"`
			City string `json:"city"`
		} `json:"details"`
	} `json:"data"`
}

func (a *Adapter) lookupJNT(ctx context.Context, trackingNumber string) (*Status, error) {
	url := fmt.Sprintf("https://www.jet.co.id/api/track/%s", trackingNumber)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "barterhub/1.0")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jnt tracking returned status %d", resp.StatusCode)
	}

	var body jntResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode jnt response: %w", err)
	}
	if !body.Success || len(body.Data.Details) == 0 {
		return nil, fmt.Errorf("jnt tracking returned no data")
	}

	status := &Status{
		TrackingNumber: trackingNumber,
		Courier:        CourierJNT,
		LastStatus:     body.Data.LastStatus,
	}
	for i, d := range body.Data.Details {
		ts, _ := time.Parse("2006-01-02 15:04", d.Date)
		status.Timeline = append(status.Timeline, Event{
			Status:   d.Desc,
			Time:     ts,
			Location: d.City,
			Current:  i == len(body.Data.Details)-1,
		})
		if isReceiptStatus(d.Desc) {
			status.Delivered = true
		}
	}
	return status, nil
}

type sicepatResponse struct {
	Sicepat struct {
		Result struct {
			LastStatus   string `json:"last_status"`
			Status       string `json:"status"`
			TrackHistory []struct {
				Status   string `json:"status"`
				DateTime string `json:"date_time"`
				City     string `json:"city"`
			} `json:"track_history"`
		} `json:"result"`
	} `json:"sicepat"`
}

func (a *Adapter) lookupSiCepat(ctx context.Context, trackingNumber string) (*Status, error) {
	payload, err := json.Marshal(map[string]string{"waybill": trackingNumber})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.sicepat.com/customer/waybill", strings.NewReader(string(payload)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sicepat tracking returned status %d", resp.StatusCode)
	}

	var body sicepatResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode sicepat response: %w", err)
	}
	result := body.Sicepat.Result
	if len(result.TrackHistory) == 0 {
		return nil, fmt.Errorf("sicepat tracking returned no history")
	}

	status := &Status{
		TrackingNumber: trackingNumber,
		Courier:        CourierSiCepat,
		LastStatus:     result.LastStatus,
		Delivered:      result.Status == "DELIVERED",
	}
	for i, h := range result.TrackHistory {
		ts, _ := time.Parse("2006-01-02 15:04", h.DateTime)
		status.Timeline = append(status.Timeline, Event{
			Status:   h.Status,
			Time:     ts,
			Location: h.City,
			Current:  i == len(result.TrackHistory)-1,
		})
	}
	return status, nil
}

var simulatedStatuses = []string{
	"Package picked up by courier",
	"Package in transit to origin hub",
	"Package arrived at origin hub",
	"Package in transit to destination city",
	"Package arrived at destination hub",
	"Package out for delivery",
	"Package dispatched to recipient address",
	"Package delivered to recipient",
}

var simulatedHubs = []string{"Jakarta", "Bandung", "Surabaya", "Medan", "Yogyakarta"}

// SimulateTracking derives a plausible progress timeline entirely from
// the tracking number, so repeated lookups of the same number agree.
// The final event is marked delivered when its text matches the
// receipt-keyword heuristic.
func SimulateTracking(trackingNumber string, courier Courier) *Status {
	h := fnv.New64a()
	h.Write([]byte(trackingNumber))
	r := rand.New(rand.NewSource(int64(h.Sum64())))

	count := 3 + r.Intn(len(simulatedStatuses)-2)

	now := time.Now()
	timeline := make([]Event, 0, count)
	for i := 0; i < count; i++ {
		timeline = append(timeline, Event{
			Status:   simulatedStatuses[i],
			Time:     now.Add(-time.Duration(count-i)*24*time.Hour - time.Duration(r.Intn(24))*time.Hour),
			Location: "Hub " + simulatedHubs[r.Intn(len(simulatedHubs))],
			Current:  i == count-1,
		})
	}

	last := timeline[len(timeline)-1]
	return &Status{
		TrackingNumber: trackingNumber,
		Courier:        courier,
		LastStatus:     last.Status,
		Timeline:       timeline,
		Delivered:      isReceiptStatus(last.Status),
		Simulated:      true,
	}
}
