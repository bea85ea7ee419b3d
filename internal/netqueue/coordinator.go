// internal/netqueue/coordinator.go
package netqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"phredavg/internal/backend"
	"phredavg/internal/chunk"
	"phredavg/internal/errors"
	"phredavg/internal/phred"
	"phredavg/internal/queue"
)

// Config configures a Coordinator.
type Config struct {
	Addr         string        // host:port for the queue listener
	Secret       []byte        // shared secret, required
	PollInterval time.Duration // result queue backoff; 0 = 1s
	Grace        time.Duration // wait for stragglers after the pill; 0 = 5s
	LeaseTimeout time.Duration // job lease; 0 = 5m
	MetricsAddr  string        // optional separate listener for /metrics
}

func (c *Config) setDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.Grace <= 0 {
		c.Grace = 5 * time.Second
	}
	if c.LeaseTimeout <= 0 {
		c.LeaseTimeout = 5 * time.Minute
	}
}

// Coordinator owns a job queue and a result queue and serves them to
// remote workers. It implements backend.Backend.
type Coordinator struct {
	cfg    Config
	log    *zap.Logger
	signer *Signer
	reg    *prometheus.Registry
	m      *metrics

	mu        sync.Mutex
	jobs      *queue.JobQueue[chunk.Task]
	results   *queue.FIFO[Result] // remote view, drained by result_queue/get
	collected []Result            // every accepted result, read by Collect
	want      int

	ln      net.Listener
	srv     *http.Server
	metrics *http.Server
}

var _ backend.Backend = (*Coordinator)(nil)

func NewCoordinator(cfg Config, log *zap.Logger) (*Coordinator, error) {
	cfg.setDefaults()
	signer, err := NewSigner(cfg.Secret)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	c := &Coordinator{cfg: cfg, log: log, signer: signer, reg: prometheus.NewRegistry()}
	c.m = newMetrics(c.reg, func() float64 {
		jobs := c.jobQueue()
		if jobs == nil {
			return 0
		}
		_, leased, _ := jobs.Stats()
		return float64(leased)
	})
	return c, nil
}

func (c *Coordinator) jobQueue() *queue.JobQueue[chunk.Task] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobs
}

// Start binds the queue listener (and the metrics listener, if set) and
// begins serving. It is called by Submit if not called before.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", c.cfg.Addr)
	if err != nil {
		return errors.NewNetworkError("listen", c.cfg.Addr, err)
	}
	c.ln = ln
	c.srv = &http.Server{Handler: c.Router(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := c.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.Error("queue server stopped", zap.Error(err))
		}
	}()
	c.log.Info("coordinator listening", zap.String("addr", ln.Addr().String()))

	if c.cfg.MetricsAddr != "" {
		mln, err := net.Listen("tcp", c.cfg.MetricsAddr)
		if err != nil {
			return errors.NewNetworkError("listen", c.cfg.MetricsAddr, err)
		}
		r := mux.NewRouter()
		r.Handle("/metrics", promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}))
		c.metrics = &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := c.metrics.Serve(mln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				c.log.Error("metrics server stopped", zap.Error(err))
			}
		}()
		c.log.Info("metrics listening", zap.String("addr", mln.Addr().String()))
	}
	return nil
}

// Addr returns the bound queue address, or "" before Start.
func (c *Coordinator) Addr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ln == nil {
		return ""
	}
	return c.ln.Addr().String()
}

// Registry exposes the coordinator's metrics.
func (c *Coordinator) Registry() *prometheus.Registry { return c.reg }

// Router serves exactly the get and put operations of the two queues,
// behind request signing.
func (c *Coordinator) Router() http.Handler {
	r := mux.NewRouter()
	q := r.PathPrefix("/v1/queues").Subrouter()
	q.Use(c.signer.Middleware)
	q.HandleFunc("/"+JobQueueName+"/get", c.handleJobGet).Methods(http.MethodPost)
	q.HandleFunc("/"+JobQueueName+"/put", c.handleJobPut).Methods(http.MethodPost)
	q.HandleFunc("/"+ResultQueueName+"/get", c.handleResultGet).Methods(http.MethodPost)
	q.HandleFunc("/"+ResultQueueName+"/put", c.handleResultPut).Methods(http.MethodPost)
	return r
}

// Submit enqueues one job per task followed by the poison pill.
func (c *Coordinator) Submit(_ context.Context, tasks []chunk.Task) error {
	if err := c.Start(); err != nil {
		return err
	}
	jobs := queue.NewJobQueue[chunk.Task](len(tasks), c.cfg.LeaseTimeout,
		queue.OnExpire(func(l queue.Lease[chunk.Task]) {
			c.m.leasesExpired.Inc()
			c.log.Warn("lease expired, requeueing job",
				zap.String("job", l.JobID),
				zap.Stringer("task", l.Item),
				zap.Error(&errors.WorkerLossError{JobIDs: []string{l.JobID}}))
		}))
	for i, t := range tasks {
		if err := jobs.Put(jobID(i), t); err != nil {
			return errors.Wrapf(err, "enqueue %v", t)
		}
		c.m.jobsEnqueued.Inc()
	}
	jobs.Close()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.jobs != nil {
		return errors.New("coordinator: jobs already submitted")
	}
	c.jobs = jobs
	c.results = queue.NewFIFO[Result](len(tasks))
	c.collected = make([]Result, 0, len(tasks))
	c.want = len(tasks)
	c.log.Info("jobs enqueued", zap.Int("jobs", len(tasks)))
	return nil
}

func jobID(i int) string { return fmt.Sprintf("job-%06d", i) }

// Collect polls until every job has a result. It reads the coordinator's
// own record of accepted results, so a remote consumer draining
// result_queue cannot take a result away from it.
func (c *Coordinator) Collect(ctx context.Context) ([]phred.Result, error) {
	c.mu.Lock()
	jobs, want := c.jobs, c.want
	c.mu.Unlock()
	if jobs == nil {
		return nil, errors.New("coordinator: nothing submitted")
	}
	out := make([]phred.Result, 0, want)
	for len(out) < want {
		c.mu.Lock()
		fresh := c.collected[len(out):]
		c.mu.Unlock()
		if len(fresh) == 0 {
			select {
			case <-ctx.Done():
				return nil, errors.Join(ctx.Err(), &errors.WorkerLossError{JobIDs: jobs.Outstanding()})
			case <-time.After(c.cfg.PollInterval):
			}
			continue
		}
		for _, r := range fresh {
			out = append(out, phred.Result{Task: r.Job.Task, Partial: r.Partial})
		}
	}
	c.log.Info("all results collected", zap.Int("results", len(out)))
	return out, nil
}

// Shutdown re-sends the pill, gives workers the grace period to see it,
// then closes the listeners.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	jobs, srv, msrv := c.jobs, c.srv, c.metrics
	c.mu.Unlock()
	if jobs != nil {
		_ = jobs.PutPill()
	}
	if srv == nil {
		return nil
	}
	select {
	case <-ctx.Done():
	case <-time.After(c.cfg.Grace):
	}
	c.log.Info("shutting down coordinator")
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(sctx)
	if msrv != nil {
		if merr := msrv.Shutdown(sctx); err == nil {
			err = merr
		}
	}
	return errors.EnsureStack(err)
}

func (c *Coordinator) handleJobGet(w http.ResponseWriter, r *http.Request) {
	jobs := c.jobQueue()
	if jobs == nil {
		writeEnvelope(w, Envelope{Kind: KindEmpty})
		return
	}
	l, st := jobs.Get()
	switch st {
	case queue.Pill:
		c.m.pillsDelivered.Inc()
		writeEnvelope(w, Envelope{Kind: KindPill})
	case queue.Leased:
		c.m.jobsLeased.Inc()
		c.log.Debug("job leased", zap.String("job", l.JobID), zap.String("remote", r.RemoteAddr))
		writeEnvelope(w, Envelope{Kind: KindJob, Job: &Job{ID: l.JobID, Lease: l.ID, Task: l.Item}})
	default:
		writeEnvelope(w, Envelope{Kind: KindEmpty})
	}
}

func (c *Coordinator) handleJobPut(w http.ResponseWriter, r *http.Request) {
	var env Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, "decode: "+err.Error(), http.StatusBadRequest)
		return
	}
	if env.Kind != KindPill {
		http.Error(w, "only the coordinator enqueues jobs", http.StatusForbidden)
		return
	}
	jobs := c.jobQueue()
	if jobs == nil || jobs.PutPill() != nil {
		http.Error(w, "no pill has been issued", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Coordinator) handleResultPut(w http.ResponseWriter, r *http.Request) {
	var env Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		http.Error(w, "decode: "+err.Error(), http.StatusBadRequest)
		return
	}
	if env.Kind != KindResult || env.Result == nil {
		http.Error(w, "expected a result", http.StatusBadRequest)
		return
	}
	if err := env.Result.Partial.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.jobs == nil {
		http.Error(w, "no jobs submitted", http.StatusConflict)
		return
	}
	if !c.jobs.Complete(env.Result.Job.ID) {
		c.m.resultsDuplicate.Inc()
		c.log.Debug("duplicate result dropped", zap.String("job", env.Result.Job.ID))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	c.collected = append(c.collected, *env.Result)
	// one slot per job and only first results get here, so this cannot fill
	if err := c.results.TryPut(*env.Result); err != nil {
		c.log.Warn("result queue full, result kept for collection only", zap.String("job", env.Result.Job.ID), zap.Error(err))
	}
	c.m.resultsCollected.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (c *Coordinator) handleResultGet(w http.ResponseWriter, _ *http.Request) {
	c.mu.Lock()
	results := c.results
	c.mu.Unlock()
	if results == nil {
		writeEnvelope(w, Envelope{Kind: KindEmpty})
		return
	}
	r, ok := results.TryGet()
	if !ok {
		writeEnvelope(w, Envelope{Kind: KindEmpty})
		return
	}
	writeEnvelope(w, Envelope{Kind: KindResult, Result: &r})
}

func writeEnvelope(w http.ResponseWriter, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(env)
}
