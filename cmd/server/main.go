package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rkarimov/ghauth/internal/authkit"
	"github.com/rkarimov/ghauth/internal/authkitpg"
	"github.com/rkarimov/ghauth/internal/web"
	webassets "github.com/rkarimov/ghauth/web"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "ghauth",
		Short:   "Auth service with GitHub sign-in and stateless JWT session cookies",
		PreRunE: prepareServerConfig,
		RunE:    runServer,
	}

	rootCmd.Flags().String("listen_addr", ":8080", "HTTP listen address")
	rootCmd.Flags().String("cookie_domain", "", "Cookie domain; empty for host-only")
	rootCmd.Flags().String("cookie_name", sessionCookieName, "Session cookie name")
	rootCmd.Flags().String("github_client_id", "", "GitHub OAuth App client ID")
	rootCmd.Flags().String("github_client_secret", "", "GitHub OAuth App client secret")
	rootCmd.Flags().String("jwt_signing_key", "", "HS256 signing secret for the session JWT")
	rootCmd.Flags().Duration("session_ttl", 720*time.Hour, "Session token TTL")
	rootCmd.Flags().Duration("state_ttl", 5*time.Minute, "Lifetime of OAuth state tokens")
	rootCmd.Flags().Duration("exchange_timeout", 10*time.Second, "Timeout for each outbound GitHub call")
	rootCmd.Flags().Bool("dev_insecure_http", false, "Allow insecure HTTP for local dev")
	rootCmd.Flags().String("database_url", "", "Database URL for users (postgres:// or sqlite://; leave empty for in-memory store)")
	rootCmd.Flags().Bool("pg_native", false, "Use the pgx-native user store for postgres URLs")
	rootCmd.Flags().Bool("enable_cors", false, "Enable CORS for cross-origin clients (required to set SameSite=None cookies)")
	rootCmd.Flags().StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled (required if enable_cors is true)")
	rootCmd.Flags().Float64("signin_rate_per_minute", 10, "Sign-in attempts allowed per minute per client IP")

	_ = viper.BindPFlag("listen_addr", rootCmd.Flags().Lookup("listen_addr"))
	_ = viper.BindPFlag("cookie_domain", rootCmd.Flags().Lookup("cookie_domain"))
	_ = viper.BindPFlag("cookie_name", rootCmd.Flags().Lookup("cookie_name"))
	_ = viper.BindPFlag("github_client_id", rootCmd.Flags().Lookup("github_client_id"))
	_ = viper.BindPFlag("github_client_secret", rootCmd.Flags().Lookup("github_client_secret"))
	_ = viper.BindPFlag("jwt_signing_key", rootCmd.Flags().Lookup("jwt_signing_key"))
	_ = viper.BindPFlag("session_ttl", rootCmd.Flags().Lookup("session_ttl"))
	_ = viper.BindPFlag("state_ttl", rootCmd.Flags().Lookup("state_ttl"))
	_ = viper.BindPFlag("exchange_timeout", rootCmd.Flags().Lookup("exchange_timeout"))
	_ = viper.BindPFlag("dev_insecure_http", rootCmd.Flags().Lookup("dev_insecure_http"))
	_ = viper.BindPFlag("database_url", rootCmd.Flags().Lookup("database_url"))
	_ = viper.BindPFlag("pg_native", rootCmd.Flags().Lookup("pg_native"))
	_ = viper.BindPFlag("enable_cors", rootCmd.Flags().Lookup("enable_cors"))
	_ = viper.BindPFlag("cors_allowed_origins", rootCmd.Flags().Lookup("cors_allowed_origins"))
	_ = viper.BindPFlag("signin_rate_per_minute", rootCmd.Flags().Lookup("signin_rate_per_minute"))

	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()

	return rootCmd
}

const (
	sessionCookieName = "token"
	tokenIssuer       = "ghauth"

	configCodeMissingGitHubClientID     = "config.missing_github_client_id"
	configCodeMissingGitHubClientSecret = "config.missing_github_client_secret"
	configCodeMissingJWTSigningKey      = "config.missing_jwt_signing_key"
	configCodeInvalidSessionTTL         = "config.invalid_session_ttl"
	configCodeUninitializedServerConf   = "config.uninitialized_server_config"
)

type contextKey string

const serverConfigContextKey contextKey = "serverConfig"

func prepareServerConfig(command *cobra.Command, arguments []string) error {
	serverConfig, loadErr := LoadServerConfig()
	if loadErr != nil {
		return loadErr
	}
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, serverConfigContextKey, serverConfig))
	return nil
}

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

func LoadServerConfig() (authkit.ServerConfig, error) {
	gitHubClientID := viper.GetString("github_client_id")
	if gitHubClientID == "" {
		return authkit.ServerConfig{}, configError(configCodeMissingGitHubClientID, "github_client_id must be provided")
	}

	gitHubClientSecret := viper.GetString("github_client_secret")
	if gitHubClientSecret == "" {
		return authkit.ServerConfig{}, configError(configCodeMissingGitHubClientSecret, "github_client_secret must be provided")
	}

	jwtSigningKey := viper.GetString("jwt_signing_key")
	if jwtSigningKey == "" {
		return authkit.ServerConfig{}, configError(configCodeMissingJWTSigningKey, "jwt_signing_key must be provided")
	}

	sessionTTL := viper.GetDuration("session_ttl")
	if sessionTTL <= 0 {
		return authkit.ServerConfig{}, configError(configCodeInvalidSessionTTL, "session_ttl must be greater than zero")
	}

	stateTTL := 5 * time.Minute
	if configuredStateTTL := viper.GetDuration("state_ttl"); configuredStateTTL > 0 {
		stateTTL = configuredStateTTL
	}

	exchangeTimeout := 10 * time.Second
	if configuredTimeout := viper.GetDuration("exchange_timeout"); configuredTimeout > 0 {
		exchangeTimeout = configuredTimeout
	}

	cookieName := viper.GetString("cookie_name")
	if cookieName == "" {
		cookieName = sessionCookieName
	}

	return authkit.ServerConfig{
		GitHubClientID:     gitHubClientID,
		GitHubClientSecret: gitHubClientSecret,
		TokenSigningKey:    []byte(jwtSigningKey),
		TokenIssuer:        tokenIssuer,
		CookieDomain:       viper.GetString("cookie_domain"),
		SessionCookieName:  cookieName,
		SessionTTL:         sessionTTL,
		StateTTL:           stateTTL,
		ExchangeTimeout:    exchangeTimeout,
	}, nil
}

func buildUserStore(ctx context.Context, logger *zap.Logger, databaseURL string, pgNative bool) (authkit.UserStore, error) {
	if databaseURL == "" {
		logger.Info("using in-memory user store")
		return authkit.NewMemoryUserStore(), nil
	}
	if pgNative {
		pool, poolErr := authkitpg.BuildPool(ctx, databaseURL)
		if poolErr != nil {
			return nil, poolErr
		}
		if schemaErr := authkitpg.EnsureSchema(ctx, pool); schemaErr != nil {
			return nil, schemaErr
		}
		logger.Info("using pgx-native user store")
		return authkitpg.NewPostgresUserStore(pool), nil
	}
	store, storeErr := authkit.NewDatabaseUserStore(ctx, databaseURL)
	if storeErr != nil {
		return nil, storeErr
	}
	logger.Info("using persistent user store", zap.String("driver", store.Driver()))
	return store, nil
}

func runServer(command *cobra.Command, arguments []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(serverConfigContextKey)
	}
	serverConfig, ok := contextValue.(authkit.ServerConfig)
	if !ok {
		return configError(configCodeUninitializedServerConf, "server configuration not prepared; PreRunE must execute before RunE")
	}

	listenAddr := viper.GetString("listen_addr")
	devInsecureHTTP := viper.GetBool("dev_insecure_http")
	databaseURL := viper.GetString("database_url")
	pgNative := viper.GetBool("pg_native")
	enableCORS := viper.GetBool("enable_cors")
	corsAllowedOrigins := viper.GetStringSlice("cors_allowed_origins")
	signInRate := viper.GetFloat64("signin_rate_per_minute")

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(zapLoggerMiddleware(logger))

	if enableCORS {
		corsMiddleware, corsErr := web.ConfigureCORS(logger, corsAllowedOrigins)
		if corsErr != nil {
			return corsErr
		}
		router.Use(corsMiddleware)
	}

	router.GET("/static/auth-client.js", func(contextGin *gin.Context) {
		web.ServeEmbeddedStaticJS(contextGin, webassets.FS, "auth-client.js")
	})

	router.GET("/demo/config.js", func(contextGin *gin.Context) {
		web.ServeDemoConfig(contextGin, web.DemoConfig{
			GitHubClientID: serverConfig.GitHubClientID,
		})
	})

	router.GET("/demo", func(contextGin *gin.Context) {
		contextGin.File("web/demo.html")
	})

	serverConfig.AllowInsecureHTTP = devInsecureHTTP
	serverConfig.SameSiteMode = http.SameSiteStrictMode
	if enableCORS {
		serverConfig.SameSiteMode = http.SameSiteNoneMode
	}

	userStore, storeErr := buildUserStore(context.Background(), logger, databaseURL, pgNative)
	if storeErr != nil {
		return storeErr
	}

	registry := prometheus.NewRegistry()
	metricsRecorder := authkit.NewPrometheusMetrics(registry)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	exchanger := authkit.NewGitHubExchanger(authkit.GitHubExchangerConfig{
		ClientID:     serverConfig.GitHubClientID,
		ClientSecret: serverConfig.GitHubClientSecret,
		Timeout:      serverConfig.ExchangeTimeout,
	})

	manager, managerErr := authkit.NewSessionManager(serverConfig, exchanger, userStore, authkit.NewSystemClock(), logger, metricsRecorder)
	if managerErr != nil {
		return managerErr
	}

	stateStore := authkit.NewMemoryStateStore(serverConfig.StateTTL)

	limiterConfig := authkit.DefaultSignInRateLimiterConfig()
	if signInRate > 0 {
		limiterConfig.RatePerMinute = signInRate
		limiterConfig.Burst = int(signInRate)
	}
	signInLimiter := authkit.NewSignInRateLimiter(limiterConfig)
	defer signInLimiter.Stop()

	authkit.MountAuthRoutes(router, serverConfig, manager, stateStore, signInLimiter)

	server := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		<-stopSignals
		graceCtx, graceCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", listenAddr))
	if err := serveHTTP(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	return nil
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		startTime := time.Now()
		contextGin.Next()
		duration := time.Since(startTime)
		logger.Info("http",
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.Request.URL.Path),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.Duration("elapsed", duration),
		)
	}
}
