// server.go - REST gateway over the verification core.
//
// Exposes the inbound interface of the verifier (verify, batch, withdrawal,
// extension, stats, root membership) plus the privileged root-append path,
// health, and Prometheus metrics. Stateless verification results are memoized
// in an LRU cache keyed by a request digest; stateful withdrawal calls are
// never cached.

package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"poolgate/internal/verifier"
)

// DefaultCacheSize bounds the verification result cache unless configured.
const DefaultCacheSize = 1024

// Config holds the gateway-specific settings.
type Config struct {
	// ListenAddr is the host:port the daemon binds.
	ListenAddr string `json:"listen_addr"`

	// AdminToken guards the privileged root-append endpoint. Empty disables
	// the administrative path entirely.
	AdminToken string `json:"admin_token"`

	// CacheSize bounds the verification result cache.
	CacheSize int `json:"cache_size"`
}

// Server wires the verification core to its HTTP surface.
type Server struct {
	cfg     *Config
	engine  *verifier.Engine
	guard   *verifier.WithdrawalGuard
	ext     *verifier.ExtendedVerifier
	log     zerolog.Logger
	metrics *Metrics
	cache   *lru.Cache[string, cachedResult]
}

// cachedResult is the memoized outcome of a completed verification. Only
// completed predicate runs are cached; structural failures and other errors
// always re-execute.
type cachedResult struct {
	Success bool
	Format  string
}

// NewServer builds a gateway around an engine, a withdrawal guard, and an
// extension verifier.
func NewServer(cfg *Config, engine *verifier.Engine, guard *verifier.WithdrawalGuard, ext *verifier.ExtendedVerifier, log zerolog.Logger) (*Server, error) {
	if cfg == nil || engine == nil || guard == nil || ext == nil {
		return nil, fmt.Errorf("%w: gateway requires config, engine, guard and extension", verifier.ErrNotInitialized)
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, cachedResult](size)
	if err != nil {
		return nil, fmt.Errorf("result cache: %w", err)
	}
	return &Server{
		cfg:     cfg,
		engine:  engine,
		guard:   guard,
		ext:     ext,
		log:     log.With().Str("component", "gateway").Logger(),
		metrics: NewMetrics(),
		cache:   cache,
	}, nil
}

// Router assembles the gin engine with all routes.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.observe())

	router.GET("/health", s.handleHealth)
	router.GET("/stats", s.handleStats)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	router.POST("/verify", s.handleVerify)
	router.POST("/verify/batch", s.handleVerifyBatch)
	router.POST("/withdraw", s.handleWithdraw)
	router.POST("/extension/verify", s.handleExtension)

	router.GET("/roots/:root", s.handleRootLookup)
	admin := router.Group("/admin", s.requireAdmin())
	admin.GET("/roots", s.handleListRoots)
	admin.POST("/roots", s.handleAppendRoot)

	return router
}

// observe is the request logging and metrics middleware.
func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		code := strconv.Itoa(c.Writer.Status())
		s.metrics.requestsTotal.WithLabelValues(c.FullPath(), code).Inc()
		s.log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("code", code).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	}
}

// requireAdmin gates the privileged administrative endpoints.
func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cfg.AdminToken == "" || c.GetHeader("X-Admin-Token") != s.cfg.AdminToken {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin token required"})
			return
		}
		c.Next()
	}
}

// --- wire types ---

type g1JSON struct {
	X string `json:"x"`
	Y string `json:"y"`
}

type g2JSON struct {
	X0 string `json:"x0"`
	X1 string `json:"x1"`
	Y0 string `json:"y0"`
	Y1 string `json:"y1"`
}

type proofJSON struct {
	A g1JSON `json:"a"`
	B g2JSON `json:"b"`
	C g1JSON `json:"c"`
}

type verifyRequest struct {
	Proof     proofJSON `json:"proof"`
	Inputs    []string  `json:"inputs"`
	Timestamp int64     `json:"timestamp,omitempty"`
}

type batchRequest struct {
	Proofs    []proofJSON `json:"proofs"`
	Inputs    [][]string  `json:"inputs"`
	Timestamp int64       `json:"timestamp,omitempty"`
}

type withdrawRequest struct {
	Proof         proofJSON `json:"proof"`
	Nullifier     string    `json:"nullifier"`
	Root          string    `json:"root"`
	RecipientHash string    `json:"recipient_hash"`
	Timestamp     int64     `json:"timestamp,omitempty"`
}

type extensionRequest struct {
	Proof     proofJSON `json:"proof"`
	Inputs    []string  `json:"inputs"`
	AppData   uint64    `json:"app_data"`
	Timestamp int64     `json:"timestamp,omitempty"`
}

type resultJSON struct {
	Success     bool   `json:"success"`
	CostUsed    uint64 `json:"cost_used"`
	Timestamp   string `json:"timestamp"`
	ProofFormat string `json:"proof_format"`
	Error       string `json:"error,omitempty"`
	Cached      bool   `json:"cached,omitempty"`
}

func toResultJSON(res verifier.Result) resultJSON {
	out := resultJSON{
		Success:     res.Success,
		CostUsed:    res.CostUsed,
		Timestamp:   res.Timestamp.UTC().Format(time.RFC3339Nano),
		ProofFormat: res.ProofFormat,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// --- decoding helpers ---

func parseField(name, v string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a decimal field element", verifier.ErrInvalidInputs, name)
	}
	return n, nil
}

func (s *Server) decodeProof(p proofJSON) (*verifier.Proof, error) {
	size := len(p.A.X) + len(p.A.Y) + len(p.B.X0) + len(p.B.X1) + len(p.B.Y0) + len(p.B.Y1) + len(p.C.X) + len(p.C.Y)
	if max := s.engine.Config().MaxProofSize; size > max {
		return nil, fmt.Errorf("%w: serialized proof size %d exceeds %d", verifier.ErrInvalidProof, size, max)
	}
	proof := &verifier.Proof{}
	fields := []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"a.x", p.A.X, &proof.A.X},
		{"a.y", p.A.Y, &proof.A.Y},
		{"b.x0", p.B.X0, &proof.B.X0},
		{"b.x1", p.B.X1, &proof.B.X1},
		{"b.y0", p.B.Y0, &proof.B.Y0},
		{"b.y1", p.B.Y1, &proof.B.Y1},
		{"c.x", p.C.X, &proof.C.X},
		{"c.y", p.C.Y, &proof.C.Y},
	}
	for _, f := range fields {
		n, ok := new(big.Int).SetString(f.raw, 10)
		if !ok {
			return nil, fmt.Errorf("%w: coordinate %s is not a decimal field element", verifier.ErrInvalidProof, f.name)
		}
		*f.dst = n
	}
	return proof, nil
}

func decodeInputs(raw []string) (verifier.PublicInputs, error) {
	inputs := make(verifier.PublicInputs, len(raw))
	for i, v := range raw {
		n, err := parseField(fmt.Sprintf("inputs[%d]", i), v)
		if err != nil {
			return nil, err
		}
		inputs[i] = n
	}
	return inputs, nil
}

// checkTimestamp enforces the configured client-timestamp requirement.
func (s *Server) checkTimestamp(ts int64) error {
	if s.engine.Config().RequireTimestamp && ts == 0 {
		return fmt.Errorf("%w: timestamp required", verifier.ErrInvalidInputs)
	}
	return nil
}

// statusFor maps the core's error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, verifier.ErrInvalidProof),
		errors.Is(err, verifier.ErrInvalidInputs),
		errors.Is(err, verifier.ErrLengthMismatch),
		errors.Is(err, verifier.ErrCostLimitExceeded),
		errors.Is(err, verifier.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, verifier.ErrNullifierReused):
		return http.StatusConflict
	case errors.Is(err, verifier.ErrUnknownRoot):
		return http.StatusNotFound
	case errors.Is(err, verifier.ErrBaseVerificationFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, verifier.ErrThresholdNotMet):
		return http.StatusServiceUnavailable
	case errors.Is(err, verifier.ErrDeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// --- handlers ---

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleStats(c *gin.Context) {
	stats := s.engine.Stats()
	c.JSON(http.StatusOK, gin.H{
		"total":            stats.Total,
		"successful":       stats.Successful,
		"failed":           stats.Failed,
		"average_cost":     stats.AverageCost,
		"spent_nullifiers": s.guard.SpentCount(),
		"report":           stats.String(),
	})
}

func (s *Server) handleVerify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.checkTimestamp(req.Timestamp); err != nil {
		s.fail(c, err)
		return
	}
	proof, err := s.decodeProof(req.Proof)
	if err != nil {
		s.fail(c, err)
		return
	}
	inputs, err := decodeInputs(req.Inputs)
	if err != nil {
		s.fail(c, err)
		return
	}

	key := requestDigest(proof, inputs)
	if hit, ok := s.cache.Get(key); ok {
		s.metrics.cacheHits.Inc()
		c.JSON(http.StatusOK, resultJSON{
			Success:     hit.Success,
			ProofFormat: hit.Format,
			Timestamp:   time.Now().UTC().Format(time.RFC3339Nano),
			Cached:      true,
		})
		return
	}
	s.metrics.cacheMisses.Inc()

	start := time.Now()
	res, err := s.engine.Verify(c.Request.Context(), proof, inputs)
	s.metrics.verificationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.verificationsTotal.WithLabelValues("error").Inc()
		s.fail(c, err)
		return
	}
	s.cache.Add(key, cachedResult{Success: res.Success, Format: res.ProofFormat})
	s.metrics.verificationsTotal.WithLabelValues(outcome(res.Success)).Inc()
	c.JSON(http.StatusOK, toResultJSON(res))
}

func (s *Server) handleVerifyBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.checkTimestamp(req.Timestamp); err != nil {
		s.fail(c, err)
		return
	}

	// The length precondition is checked on the wire arrays before decoding
	// so a mismatched batch never runs any predicate.
	if len(req.Proofs) != len(req.Inputs) {
		s.fail(c, fmt.Errorf("%w: %d proofs, %d input sets", verifier.ErrLengthMismatch, len(req.Proofs), len(req.Inputs)))
		return
	}

	proofs := make([]*verifier.Proof, len(req.Proofs))
	inputs := make([]verifier.PublicInputs, len(req.Inputs))
	for i := range req.Proofs {
		p, err := s.decodeProof(req.Proofs[i])
		if err != nil {
			s.fail(c, err)
			return
		}
		in, err := decodeInputs(req.Inputs[i])
		if err != nil {
			s.fail(c, err)
			return
		}
		proofs[i], inputs[i] = p, in
	}

	results, err := s.engine.VerifyBatch(c.Request.Context(), proofs, inputs)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]resultJSON, len(results))
	for i, res := range results {
		out[i] = toResultJSON(res)
		s.metrics.verificationsTotal.WithLabelValues(outcome(res.Success)).Inc()
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (s *Server) handleWithdraw(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.checkTimestamp(req.Timestamp); err != nil {
		s.fail(c, err)
		return
	}
	proof, err := s.decodeProof(req.Proof)
	if err != nil {
		s.fail(c, err)
		return
	}
	nullifier, err := parseField("nullifier", req.Nullifier)
	if err != nil {
		s.fail(c, err)
		return
	}
	root, err := parseField("root", req.Root)
	if err != nil {
		s.fail(c, err)
		return
	}
	recipient, err := parseField("recipient_hash", req.RecipientHash)
	if err != nil {
		s.fail(c, err)
		return
	}

	start := time.Now()
	res, err := s.guard.VerifyWithdrawal(c.Request.Context(), proof, nullifier, root, recipient)
	s.metrics.verificationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.withdrawalsTotal.WithLabelValues("rejected").Inc()
		s.fail(c, err)
		return
	}
	s.metrics.withdrawalsTotal.WithLabelValues(outcome(res.Success)).Inc()
	c.JSON(http.StatusOK, toResultJSON(res))
}

func (s *Server) handleExtension(c *gin.Context) {
	var req extensionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.checkTimestamp(req.Timestamp); err != nil {
		s.fail(c, err)
		return
	}
	proof, err := s.decodeProof(req.Proof)
	if err != nil {
		s.fail(c, err)
		return
	}
	inputs, err := decodeInputs(req.Inputs)
	if err != nil {
		s.fail(c, err)
		return
	}

	res, err := s.ext.VerifyWithExtension(c.Request.Context(), proof, inputs, req.AppData)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toResultJSON(res))
}

func (s *Server) handleRootLookup(c *gin.Context) {
	root, err := parseField("root", c.Param("root"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"root": root.String(), "known": s.guard.IsKnownRoot(root)})
}

func (s *Server) handleListRoots(c *gin.Context) {
	roots := s.guard.Roots()
	out := make([]string, len(roots))
	for i, r := range roots {
		out[i] = r.String()
	}
	c.JSON(http.StatusOK, gin.H{"roots": out})
}

func (s *Server) handleAppendRoot(c *gin.Context) {
	var req struct {
		Root string `json:"root"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	root, err := parseField("root", req.Root)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.guard.AppendRoot(root); err != nil {
		s.fail(c, err)
		return
	}
	s.log.Info().Str("root", root.String()).Msg("root accepted")
	c.JSON(http.StatusCreated, gin.H{"root": root.String()})
}

// requestDigest keys the result cache on the full verification request.
func requestDigest(proof *verifier.Proof, inputs verifier.PublicInputs) string {
	h := sha256.New()
	for _, c := range proof.Coordinates() {
		h.Write([]byte(c.String()))
		h.Write([]byte{'|'})
	}
	h.Write([]byte{';'})
	for _, in := range inputs {
		h.Write([]byte(in.String()))
		h.Write([]byte{'|'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
