package httpapi

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/fakersql-go/fakersql"
)

type benchmarkCall struct {
	locale     string
	iterations int
}

// fakeService records the calls the handlers make and answers with canned results.
type fakeService struct {
	mu sync.Mutex

	locales      []fakersql.Locale
	localesErr   error
	users        []fakersql.FakeUser
	generateErr  error
	benchmark    fakersql.BenchmarkResult
	benchmarkErr error

	localeCalls    int
	generateCalls  []fakersql.ValidatedParams
	benchmarkCalls []benchmarkCall
}

func newFakeService() *fakeService {
	return &fakeService{
		locales: []fakersql.Locale{
			{Code: "en_US", Name: "English (United States)"},
			{Code: "de_DE", Name: "German (Germany)"},
		},
	}
}

func (f *fakeService) GetLocales(_ context.Context) ([]fakersql.Locale, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.localeCalls++

	return f.locales, f.localesErr
}

func (f *fakeService) GenerateUsers(_ context.Context, params fakersql.ValidatedParams) ([]fakersql.FakeUser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.generateCalls = append(f.generateCalls, params)

	return f.users, f.generateErr
}

func (f *fakeService) RunBenchmark(_ context.Context, locale string, iterations int) (fakersql.BenchmarkResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.benchmarkCalls = append(f.benchmarkCalls, benchmarkCall{locale: locale, iterations: iterations})

	return f.benchmark, f.benchmarkErr
}

func (f *fakeService) generated() []fakersql.ValidatedParams {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]fakersql.ValidatedParams(nil), f.generateCalls...)
}
