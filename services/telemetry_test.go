package services

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"karyasiddhi-ai/config"
	"karyasiddhi-ai/models"
)

type stubScorer struct {
	score models.AnomalyScore
	err   error
	got   []float64
}

func (s *stubScorer) AnomalyScore(features []float64) (models.AnomalyScore, error) {
	s.got = features
	return s.score, s.err
}

func newTestTelemetry(scorer Scorer, pub Publisher) *TelemetryScorer {
	return NewTelemetryScorer(config.MQTTConfig{URL: "tcp://localhost:1883", Topic: "t/+"}, scorer, pub, nil)
}

func TestTelemetryPayloadJSON(t *testing.T) {
	raw := `{"user_id":"u-7","department_id":"d-2","features":[0.1,0.2,0.3]}`
	var p TelemetryPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if p.UserID != "u-7" {
		t.Errorf("UserID = %q, want %q", p.UserID, "u-7")
	}
	if p.DepartmentID != "d-2" {
		t.Errorf("DepartmentID = %q, want %q", p.DepartmentID, "d-2")
	}
	if len(p.Features) != 3 || p.Features[2] != 0.3 {
		t.Errorf("Features = %v", p.Features)
	}
}

func TestProcessMessage(t *testing.T) {
	t.Run("scores and publishes valid payload", func(t *testing.T) {
		scorer := &stubScorer{score: models.AnomalyScore{Score: 61.5, RawScore: -0.385}}
		pub := &recordingPublisher{}
		ts := newTestTelemetry(scorer, pub)

		got, err := ts.ProcessMessage(context.Background(), []byte(`{"user_id":"u-1","features":[1,2,3]}`))
		if err != nil {
			t.Fatalf("ProcessMessage failed: %v", err)
		}
		if got.Score != 61.5 || got.UserID != "u-1" {
			t.Errorf("score = %+v", got)
		}
		if len(scorer.got) != 3 {
			t.Errorf("scorer received %v", scorer.got)
		}
		if len(pub.sent) != 1 || pub.sent[0].channel != AnomalyScoreChannel {
			t.Fatalf("published = %+v", pub.sent)
		}
		if ev := pub.sent[0].message.(Event); ev.Type != EventAnomalyScored {
			t.Errorf("event type = %q", ev.Type)
		}
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		pub := &recordingPublisher{}
		ts := newTestTelemetry(&stubScorer{}, pub)
		if _, err := ts.ProcessMessage(context.Background(), []byte(`{not json`)); err == nil {
			t.Error("expected error for malformed payload")
		}
		if len(pub.sent) != 0 {
			t.Error("nothing should be published for a bad payload")
		}
	})

	t.Run("rejects empty features", func(t *testing.T) {
		ts := newTestTelemetry(&stubScorer{}, &recordingPublisher{})
		_, err := ts.ProcessMessage(context.Background(), []byte(`{"user_id":"u-1","features":[]}`))
		if !errors.Is(err, errEmptyFeatures) {
			t.Errorf("err = %v, want errEmptyFeatures", err)
		}
	})

	t.Run("propagates scoring errors", func(t *testing.T) {
		ts := newTestTelemetry(&stubScorer{err: ErrModelNotTrained}, &recordingPublisher{})
		_, err := ts.ProcessMessage(context.Background(), []byte(`{"features":[1]}`))
		if !errors.Is(err, ErrModelNotTrained) {
			t.Errorf("err = %v, want ErrModelNotTrained", err)
		}
	})

	t.Run("publish failure still returns score", func(t *testing.T) {
		pub := &recordingPublisher{err: errors.New("redis down")}
		ts := newTestTelemetry(&stubScorer{score: models.AnomalyScore{Score: 10}}, pub)
		got, err := ts.ProcessMessage(context.Background(), []byte(`{"features":[1]}`))
		if err != nil {
			t.Fatalf("ProcessMessage failed: %v", err)
		}
		if got.Score != 10 {
			t.Errorf("Score = %v, want 10", got.Score)
		}
	})
}

func TestStopWithoutStart(t *testing.T) {
	newTestTelemetry(&stubScorer{}, &recordingPublisher{}).Stop()
}

func TestStartFailureStopsReconnecting(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	ts := NewTelemetryScorer(config.MQTTConfig{URL: "tcp://" + addr, Topic: "t/+"}, &stubScorer{}, &recordingPublisher{}, nil)
	ts.connectTimeout = 200 * time.Millisecond
	ts.retryInterval = 50 * time.Millisecond

	err = ts.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("Start error = %v, want connect timeout", err)
	}
	if ts.client != nil {
		t.Error("client should be released after a failed Start")
	}

	ln, err = net.Listen("tcp", addr)
	if err != nil {
		t.Skipf("port %s was taken in the meantime: %v", addr, err)
	}
	defer ln.Close()
	ln.(*net.TCPListener).SetDeadline(time.Now().Add(500 * time.Millisecond))

	if conn, err := ln.Accept(); err == nil {
		conn.Close()
		t.Fatal("client kept dialing the broker after Start failed")
	}

	ts.Stop()
}
