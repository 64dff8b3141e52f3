package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/openpaas/groupd/internal"
	"github.com/openpaas/groupd/internal/logging"
	"github.com/openpaas/groupd/internal/server/data"
	"github.com/openpaas/groupd/internal/server/events"
	"github.com/openpaas/groupd/internal/server/models"
	"github.com/openpaas/groupd/internal/server/search"
	"github.com/openpaas/groupd/metrics"
	"github.com/openpaas/groupd/uid"
)

type Options struct {
	EnableLogSampling bool `yaml:"enableLogSampling"`

	Addr ListenerOptions `yaml:"addr"`

	DBFile                  string `yaml:"dbFile"`
	DBHost                  string `yaml:"dbHost"`
	DBPort                  int    `yaml:"dbPort"`
	DBName                  string `yaml:"dbName"`
	DBUsername              string `yaml:"dbUsername"`
	DBPassword              string `yaml:"dbPassword"`
	DBParameters            string `yaml:"dbParameters"`

	Search search.Options `yaml:"search"`

	Config Config `yaml:"config"`
}

type ListenerOptions struct {
	HTTP    string `yaml:"http"`
	Metrics string `yaml:"metrics"`
}

// Config declares the domains, users, and access keys seeded into the store
// at startup. Seeding is idempotent so the server can restart against the
// same database.
type Config struct {
	Domains []ConfigDomain `yaml:"domains"`
	Users   []ConfigUser   `yaml:"users"`
}

type ConfigDomain struct {
	Name string `yaml:"name"`
}

type ConfigUser struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	// Domain names this user belongs to, with optional administrator role.
	Domains []ConfigUserDomain `yaml:"domains"`
	// AccessKey is a literal key in the form "<keyID>.<secret>". When set,
	// the key is (re)issued for this user at startup.
	AccessKey string `yaml:"accessKey"`
}

type ConfigUserDomain struct {
	Name  string `yaml:"name"`
	Admin bool   `yaml:"admin"`
}

// Server carries the wiring for a single process: the store, the event
// dispatcher, the search listener, and the network listeners.
type Server struct {
	options  Options
	db       *gorm.DB
	events   *events.Dispatcher
	index    search.Index
	Addrs    Addrs
	routines []routine
}

type Addrs struct {
	HTTP    net.Addr
	Metrics net.Addr
}

type routine struct {
	run  func() error
	stop func()
}

func New(options Options) (*Server, error) {
	server := &Server{
		options: options,
		events:  events.NewDispatcher(),
	}

	driver, err := serverDriver(options)
	if err != nil {
		return nil, err
	}

	db, err := data.NewDB(driver)
	if err != nil {
		return nil, fmt.Errorf("db: %w", err)
	}
	server.db = db

	if err := loadConfig(db, options.Config); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	index, err := search.NewIndex(options.Search)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	server.index = index

	listener := search.NewListener(index, server.events)
	listenerCtx, listenerStop := context.WithCancel(context.Background())
	server.routines = append(server.routines, routine{
		run:  func() error { return listener.Run(listenerCtx) },
		stop: listenerStop,
	})

	promRegistry := setupMetrics()
	if err := server.listen(options.Addr.Metrics, metricsRoutine, metrics.NewHandler(promRegistry)); err != nil {
		return nil, err
	}
	if err := server.listen(options.Addr.HTTP, httpRoutine, server.GenerateRoutes(promRegistry)); err != nil {
		return nil, err
	}

	return server, nil
}

func serverDriver(options Options) (gorm.Dialector, error) {
	if options.DBHost != "" {
		var sb strings.Builder
		fmt.Fprintf(&sb, "host=%s", options.DBHost)
		if options.DBUsername != "" {
			fmt.Fprintf(&sb, " user=%s", options.DBUsername)
			if options.DBPassword != "" {
				fmt.Fprintf(&sb, " password=%s", options.DBPassword)
			}
		}
		if options.DBPort > 0 {
			fmt.Fprintf(&sb, " port=%d", options.DBPort)
		}
		if options.DBName != "" {
			fmt.Fprintf(&sb, " dbname=%s", options.DBName)
		}
		if options.DBParameters != "" {
			fmt.Fprintf(&sb, " %s", options.DBParameters)
		}
		return data.NewPostgresDriver(sb.String())
	}

	return data.NewSQLiteDriver(options.DBFile)
}

type routineKind int

const (
	httpRoutine routineKind = iota
	metricsRoutine
)

func (s *Server) listen(addr string, kind routineKind, handler http.Handler) error {
	if addr == "" {
		return nil
	}

	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %q: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 30 * time.Second,
		ReadTimeout:       60 * time.Second,
	}

	switch kind {
	case httpRoutine:
		s.Addrs.HTTP = l.Addr()
	case metricsRoutine:
		s.Addrs.Metrics = l.Addr()
	}

	s.routines = append(s.routines, routine{
		run: func() error {
			if err := srv.Serve(l); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		stop: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		},
	})
	return nil
}

// Run starts the server and blocks until an error or the context cancels.
func (s *Server) Run(ctx context.Context) error {
	group, _ := errgroup.WithContext(ctx)

	for i := range s.routines {
		group.Go(s.routines[i].run)
	}

	group.Go(func() error {
		<-ctx.Done()
		logging.L.Info().Msg("shutting down")
		for i := range s.routines {
			s.routines[i].stop()
		}
		s.events.Close()
		return nil
	})

	logging.L.Info().
		Str("http", addrString(s.Addrs.HTTP)).
		Str("metrics", addrString(s.Addrs.Metrics)).
		Msg("starting server")

	return group.Wait()
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}

func setupMetrics() *prometheus.Registry {
	registry := prometheus.NewRegistry()

	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return registry
}

// loadConfig seeds domains, users, memberships, and access keys. Existing
// rows are matched by their natural keys so re-running is a no-op.
func loadConfig(db *gorm.DB, config Config) error {
	return db.Transaction(func(tx *gorm.DB) error {
		domains := make(map[string]*models.Domain, len(config.Domains))
		for _, d := range config.Domains {
			domain, err := loadDomain(tx, d.Name)
			if err != nil {
				return err
			}
			domains[d.Name] = domain
		}

		for _, u := range config.Users {
			if err := loadUser(tx, domains, u); err != nil {
				return fmt.Errorf("user %q: %w", u.Email, err)
			}
		}
		return nil
	})
}

func loadDomain(db *gorm.DB, name string) (*models.Domain, error) {
	domain, err := data.GetDomain(db, data.ByName(name))
	switch {
	case err == nil:
		return domain, nil
	case errors.Is(err, internal.ErrNotFound):
		domain = &models.Domain{Name: name}
		if err := data.CreateDomain(db, domain); err != nil {
			return nil, err
		}
		return domain, nil
	default:
		return nil, err
	}
}

func loadUser(db *gorm.DB, domains map[string]*models.Domain, config ConfigUser) error {
	user, err := data.GetUser(db, data.ByEmail(config.Email))
	switch {
	case errors.Is(err, internal.ErrNotFound):
		user = &models.User{Name: config.Name, Email: config.Email}
		if err := data.CreateUser(db, user); err != nil {
			return err
		}
	case err != nil:
		return err
	}

	memberships, err := data.ListDomainMemberships(db, user.ID)
	if err != nil {
		return err
	}
	existing := make(map[uid.ID]bool, len(memberships))
	for _, m := range memberships {
		existing[m.DomainID] = true
	}

	for _, ud := range config.Domains {
		domain, ok := domains[ud.Name]
		if !ok {
			d, err := loadDomain(db, ud.Name)
			if err != nil {
				return err
			}
			domains[ud.Name] = d
			domain = d
		}
		if existing[domain.ID] {
			continue
		}
		err := data.AddDomainMember(db, &models.DomainMember{
			DomainID: domain.ID,
			UserID:   user.ID,
			Admin:    ud.Admin,
		})
		if err != nil {
			return err
		}
	}

	if config.AccessKey != "" {
		if err := loadAccessKey(db, user, config.AccessKey); err != nil {
			return err
		}
	}
	return nil
}

func loadAccessKey(db *gorm.DB, user *models.User, token string) error {
	keyID, secret, ok := strings.Cut(token, ".")
	if !ok {
		return fmt.Errorf("invalid access key format")
	}

	existing, err := data.GetAccessKey(db, data.ByKeyID(keyID))
	switch {
	case err == nil:
		if existing.IssuedFor != user.ID {
			return fmt.Errorf("access key already issued to a different user")
		}
		return nil
	case !errors.Is(err, internal.ErrNotFound):
		return err
	}

	key := &models.AccessKey{
		Name:      user.Email,
		IssuedFor: user.ID,
		ExpiresAt: time.Now().AddDate(10, 0, 0).UTC(),
		KeyID:     keyID,
		Secret:    secret,
	}
	if _, err := data.CreateAccessKey(db, key); err != nil {
		return err
	}
	return nil
}
