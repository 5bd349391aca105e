package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authgate"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// codeRelay hands delivered codes back to the worker that logged in.
type codeRelay struct {
	codes sync.Map
}

func (r *codeRelay) SendCode(_ context.Context, d authgate.CodeDelivery) error {
	r.codes.Store(d.TempToken, d.Code)
	return nil
}

func (r *codeRelay) take(tempToken string) string {
	v, ok := r.codes.LoadAndDelete(tempToken)
	if !ok {
		return ""
	}
	return v.(string)
}

func main() {
	var (
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "a2f-load", "challenge key prefix")
		scope       = flag.String("scope", "per_user", "challenge scope: global, per_user or per_token")
		users       = flag.Int("users", 1000, "distinct emails to spread logins over")
	)
	flag.Parse()

	if *concurrency <= 0 || *ops <= 0 || *users <= 0 {
		fmt.Fprintln(os.Stderr, "concurrency, ops, and users must be > 0")
		os.Exit(2)
	}
	challengeScope, err := authgate.ParseChallengeScope(*scope)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := authgate.DefaultConfig()
	cfg.Latency.Enabled = false
	cfg.Challenge.Scope = challengeScope
	cfg.Store.RedisPrefix = *prefix

	relay := &codeRelay{}
	engine, err := authgate.New().
		WithConfig(cfg).
		WithRedis(client).
		WithCodeSender(relay).
		WithClassifier(authgate.ClassifierFunc(func(context.Context, authgate.Credential) authgate.Outcome {
			return authgate.RequireTwoFA()
		})).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	ctx := context.Background()
	emails := make([]string, *users)
	for i := range emails {
		emails[i] = fmt.Sprintf("user-%d@load.test", i)
	}

	loginStats := runPhase(*ops, *concurrency, func(i int) error {
		_, err := engine.Login(ctx, authgate.Credential{Email: emails[i%len(emails)], Password: authgate.DemoPassword})
		return err
	})

	handshakeStats := runPhase(*ops, *concurrency, func(i int) error {
		result, err := engine.Login(ctx, authgate.Credential{Email: emails[i%len(emails)], Password: authgate.DemoPassword})
		if err != nil {
			return err
		}
		_, err = engine.VerifyTwoFA(ctx, result.TempToken, relay.take(result.TempToken))
		return err
	})

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("handshake", handshakeStats)

	snapshot := engine.MetricsSnapshot()
	fmt.Printf("verified=%d superseded=%d store_failures=%d\n",
		snapshot.Counters[authgate.MetricTwoFASuccess],
		snapshot.Counters[authgate.MetricTwoFASessionExpired],
		snapshot.Counters[authgate.MetricStoreFailure],
	)
}

// runPhase runs op ops times over concurrency workers and records latency.
func runPhase(ops, concurrency int, op func(i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return computeStats(time.Since(start), latencies, failures)
}
