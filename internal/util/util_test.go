package util

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstMatchStopsAtFirstSuccess(t *testing.T) {
	t.Parallel()

	var calls []int
	probe := func(i int, ok bool, err error) Probe {
		return func() (bool, error) {
			calls = append(calls, i)
			return ok, err
		}
	}

	idx := FirstMatch(
		probe(0, false, nil),
		probe(1, false, errors.New("boom")),
		probe(2, true, nil),
		probe(3, true, nil),
	)
	assert.Equal(t, 2, idx)
	assert.Equal(t, []int{0, 1, 2}, calls)
}

func TestFirstMatchNoneMatches(t *testing.T) {
	t.Parallel()

	assert.Equal(t, -1, FirstMatch())
	assert.Equal(t, -1, FirstMatch(func() (bool, error) { return false, nil }))
}

func TestFirstMatchOf(t *testing.T) {
	t.Parallel()

	got, ok := FirstMatchOf([]string{".a", ".b", ".c"}, func(s string) (bool, error) {
		return s == ".b" || s == ".c", nil
	})
	require.True(t, ok)
	assert.Equal(t, ".b", got)

	_, ok = FirstMatchOf([]string{".a"}, func(string) (bool, error) { return false, nil })
	assert.False(t, ok)
}

func TestIsolateRecoversPanic(t *testing.T) {
	t.Parallel()

	err := Isolate(func() error { panic("bad hoster") })
	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, err.Error(), "bad hoster")

	sentinel := errors.New("plain")
	assert.Same(t, sentinel, Isolate(func() error { return sentinel }))
	assert.NoError(t, Isolate(func() error { return nil }))
}

func TestRandomDurationWithinBounds(t *testing.T) {
	t.Parallel()

	for i := 0; i < 200; i++ {
		d := RandomDuration(50*time.Millisecond, 150*time.Millisecond)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
	assert.Equal(t, time.Second, RandomDuration(time.Second, time.Millisecond))
}

func TestSleepHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	Sleep(ctx, time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}

func TestStatsCountersAndTimings(t *testing.T) {
	t.Parallel()

	s := NewStats()
	s.Inc(CounterStreamRequests)
	s.Inc(CounterStreamRequests)
	s.Add(CounterStreamsServed, 5)

	assert.Equal(t, int64(2), s.Counter(CounterStreamRequests))
	assert.Equal(t, int64(5), s.Counters()[CounterStreamsServed])
	assert.Zero(t, s.Counter("missing"))

	s.Record("resolve", 2*time.Second)
	s.Record("resolve", 4*time.Second)
	s.Record("login", time.Second)

	timings := s.Timings()
	require.Len(t, timings, 2)
	assert.Equal(t, "resolve", timings[0].Name)
	assert.Equal(t, int64(2), timings[0].Count)
	assert.Equal(t, 3*time.Second, timings[0].Average())
	assert.Equal(t, 4*time.Second, timings[0].Last)
}

func TestStatsTouchAndStatusLine(t *testing.T) {
	t.Parallel()

	s := NewStats()
	assert.True(t, s.LastUsed().IsZero())
	s.Touch()
	assert.WithinDuration(t, time.Now(), s.LastUsed(), time.Second)

	s.Inc(CounterStreamRequests)
	line := s.StatusLine()
	assert.Contains(t, line, "requests=")
	assert.Contains(t, line, "heap=")
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "ab...", Truncate("abcdef", 2))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.True(t, ParseLevel(" DEBUG "))
	assert.False(t, ParseLevel("info"))
	assert.False(t, ParseLevel(""))
}

func TestDecorateRequest(t *testing.T) {
	t.Parallel()

	req, err := http.NewRequest(http.MethodGet, "https://example.org/", nil)
	require.NoError(t, err)
	DecorateRequest(req, "https://example.org/home")

	assert.Equal(t, UserAgent, req.Header.Get("User-Agent"))
	assert.Equal(t, AcceptLanguage, req.Header.Get("Accept-Language"))
	assert.Equal(t, "https://example.org/home", req.Header.Get("Referer"))
}

func TestNoRedirectClientStopsAtRedirect(t *testing.T) {
	t.Parallel()

	c := NewClientWithJar(nil, true)
	require.NotNil(t, c.CheckRedirect)
	assert.ErrorIs(t, c.CheckRedirect(nil, nil), http.ErrUseLastResponse)
}

func TestShowHelpListsEnvironment(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ShowHelp(&buf, []EnvHelp{{Name: "PORT", Description: "addon port"}})
	out := buf.String()
	assert.Contains(t, out, "--debug")
	assert.True(t, strings.Contains(out, "PORT"))
}
