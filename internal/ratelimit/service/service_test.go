package service

//go:generate mockgen -source=../ports/ports.go -destination=mocks/mocks.go -package=mocks WindowStore

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"formgate/internal/platform/metrics"
	"formgate/internal/ratelimit/models"
	"formgate/internal/ratelimit/service/mocks"
	"formgate/internal/ratelimit/store/window"
	"formgate/pkg/platform/circuit"
	"formgate/pkg/requestcontext"
)

const (
	testClient = "203.0.113.9"
	testLimit  = 3
	testWindow = 60 * time.Second
)

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockWindowStore
	logs    *bytes.Buffer
	metrics *metrics.Metrics
	t0      time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockWindowStore(s.ctrl)
	s.logs = &bytes.Buffer{}
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(s.logs, nil))
}

func (s *ServiceSuite) at(offset time.Duration) context.Context {
	return requestcontext.WithTime(context.Background(), s.t0.Add(offset))
}

func (s *ServiceSuite) TestSlidingWindowScenario() {
	clock := s.t0
	store := window.NewInMemoryStore(window.WithClock(func() time.Time { return clock }))
	svc := New(store, WithLogger(s.logger()))

	check := func(offset time.Duration) *models.Result {
		clock = s.t0.Add(offset)
		res, err := svc.Check(s.at(offset), testClient, testLimit, testWindow)
		s.Require().NoError(err)
		return res
	}

	s.Run("three calls inside the window are admitted", func() {
		for i, offset := range []time.Duration{0, 10 * time.Second, 20 * time.Second} {
			res := check(offset)
			s.True(res.Allowed)
			s.Equal(testLimit-(i+1), res.Remaining)
			s.Equal(s.t0.Add(testWindow), res.ResetAt)
			s.False(res.Degraded)
		}
	})

	s.Run("fourth call is rejected until the first expires", func() {
		res := check(30 * time.Second)
		s.False(res.Allowed)
		s.Equal(0, res.Remaining)
		s.Equal(s.t0.Add(testWindow), res.ResetAt)
		s.Equal(30, res.RetryAfter)
	})

	s.Run("entry exactly one window old no longer counts", func() {
		res := check(testWindow)
		s.True(res.Allowed)
		s.Equal(0, res.Remaining)
		s.Equal(s.t0.Add(10*time.Second).Add(testWindow), res.ResetAt)
	})

	s.Run("after the window elapses calls are admitted again", func() {
		res := check(3 * testWindow)
		s.True(res.Allowed)
		s.Equal(testLimit-1, res.Remaining)
	})
}

func (s *ServiceSuite) TestRejectionDoesNotPersist() {
	live := []time.Time{s.t0, s.t0.Add(time.Second), s.t0.Add(2 * time.Second)}
	s.store.EXPECT().Get(gomock.Any(), models.NewIPKey(testClient)).Return(live, nil)

	svc := New(s.store, WithLogger(s.logger()))
	res, err := svc.Check(s.at(5*time.Second), testClient, testLimit, testWindow)

	s.Require().NoError(err)
	s.False(res.Allowed)
	s.Contains(s.logs.String(), "rate_limit_exceeded")
	s.Contains(s.logs.String(), "log_type=audit")
}

func (s *ServiceSuite) TestPersistsPrunedWindowWithTTL() {
	stale := s.t0.Add(-2 * testWindow)
	now := s.t0.Add(time.Second)
	key := models.NewIPKey(testClient)

	gomock.InOrder(
		s.store.EXPECT().Get(gomock.Any(), key).Return([]time.Time{stale, s.t0}, nil),
		s.store.EXPECT().Put(gomock.Any(), key, []time.Time{s.t0, now}, testWindow).Return(nil),
	)

	svc := New(s.store, WithLogger(s.logger()))
	res, err := svc.Check(s.at(time.Second), testClient, testLimit, testWindow)

	s.Require().NoError(err)
	s.True(res.Allowed)
	s.Equal(1, res.Remaining)
}

func (s *ServiceSuite) TestNilStoreFailsOpen() {
	svc := New(nil, WithLogger(s.logger()), WithMetrics(s.metrics))

	res, err := svc.Check(s.at(0), testClient, testLimit, testWindow)

	s.Require().NoError(err)
	s.True(res.Allowed)
	s.True(res.Degraded)
	s.Contains(s.logs.String(), "rate limiter degraded")
	s.Contains(s.logs.String(), "log_type=config_absent")
	s.NotContains(s.logs.String(), testClient)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.RateLimitDegraded))
}

func (s *ServiceSuite) TestStoreErrorsFailOpen() {
	s.Run("read failure", func() {
		s.store.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))

		res, err := New(s.store, WithLogger(s.logger())).Check(s.at(0), testClient, testLimit, testWindow)

		s.Require().NoError(err)
		s.True(res.Allowed)
		s.True(res.Degraded)
	})

	s.Run("write failure", func() {
		s.store.EXPECT().Get(gomock.Any(), gomock.Any()).Return([]time.Time{}, nil)
		s.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("READONLY"))

		res, err := New(s.store, WithLogger(s.logger())).Check(s.at(0), testClient, testLimit, testWindow)

		s.Require().NoError(err)
		s.True(res.Allowed)
		s.True(res.Degraded)
	})
}

func (s *ServiceSuite) TestOpenCircuitSkipsStore() {
	breakerClock := s.t0
	breaker := circuit.New("test",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return breakerClock }),
	)
	svc := New(s.store, WithLogger(s.logger()), WithBreaker(breaker))

	s.store.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("timeout")).Times(2)
	for range 2 {
		_, err := svc.Check(s.at(0), testClient, testLimit, testWindow)
		s.Require().NoError(err)
	}
	s.True(breaker.IsOpen())
	s.Contains(s.logs.String(), "circuit opened")

	// No store expectation: the open circuit must not touch the store.
	res, err := svc.Check(s.at(0), testClient, testLimit, testWindow)
	s.Require().NoError(err)
	s.True(res.Degraded)

	breakerClock = breakerClock.Add(time.Minute)
	s.store.EXPECT().Get(gomock.Any(), gomock.Any()).Return([]time.Time{}, nil)
	s.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	res, err = svc.Check(s.at(0), testClient, testLimit, testWindow)
	s.Require().NoError(err)
	s.False(res.Degraded, "probe after cooldown reaches the store")
}

func (s *ServiceSuite) TestStoreDownAtStartRecovers() {
	breakerClock := s.t0
	breaker := circuit.New("test",
		circuit.WithFailureThreshold(3),
		circuit.WithSuccessThreshold(1),
		circuit.WithCooldown(time.Second),
		circuit.WithClock(func() time.Time { return breakerClock }),
	)
	svc := New(s.store, WithLogger(s.logger()), WithBreaker(breaker))

	s.store.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("dial tcp: connection refused")).Times(3)
	for range 3 {
		res, err := svc.Check(s.at(0), testClient, testLimit, testWindow)
		s.Require().NoError(err)
		s.True(res.Degraded)
	}
	s.Require().True(breaker.IsOpen())

	breakerClock = breakerClock.Add(time.Second)
	s.store.EXPECT().Get(gomock.Any(), gomock.Any()).Return([]time.Time{}, nil).Times(2)
	s.store.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	for range 2 {
		res, err := svc.Check(s.at(0), testClient, testLimit, testWindow)
		s.Require().NoError(err)
		s.False(res.Degraded)
	}
	s.False(breaker.IsOpen())
	s.Contains(s.logs.String(), "circuit closed")
}

func (s *ServiceSuite) TestInvalidLimit() {
	svc := New(s.store)

	_, err := svc.Check(s.at(0), testClient, 0, testWindow)
	s.Error(err)

	_, err = svc.Check(s.at(0), testClient, testLimit, 0)
	s.Error(err)
}
