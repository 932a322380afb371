package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	handler "github.com/vncsmyrnk/quadratic-poll/internal/adapters/handler/http"
	repo "github.com/vncsmyrnk/quadratic-poll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/quadratic-poll/internal/adapters/wallet"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/domain"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/ports"
	"github.com/vncsmyrnk/quadratic-poll/internal/core/services"
)

const jwtSecret = "test-secret"

type TestApp struct {
	DB          *sql.DB
	Server      *httptest.Server
	Client      *http.Client
	Reconcile   ports.ReconcileService
	DBContainer testcontainers.Container
}

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	dbName := "testdb"
	user := "user"
	password := "password"

	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(user),
		postgres.WithPassword(password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func applyMigrations(db *sql.DB) error {
	dirPath := "../../internal/adapters/repository/postgres/migrations"

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "up.sql") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dirPath, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// setupTestApp starts Postgres and serves the full API against it.
func setupTestApp(t *testing.T) *TestApp {
	t.Helper()
	ctx := context.Background()

	dbContainer, dbURL, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	require.NoError(t, applyMigrations(db))

	logger := logrus.New()
	logger.Out = io.Discard

	tx := repo.NewTransactor(db)
	userRepo := repo.NewUserRepository(db)
	pollRepo := repo.NewPollRepository(db)
	voteRepo := repo.NewVoteRepository(db)
	actionRepo := repo.NewActionRepository(db)
	authRepo := repo.NewAuthRepository(db)

	counters := services.NewCounterService(actionRepo, userRepo, pollRepo)
	pollSvc := services.NewPollService(tx, pollRepo, voteRepo, userRepo, actionRepo, counters, logger)
	voteSvc := services.NewVoteService(tx, pollRepo, voteRepo, userRepo, actionRepo, counters,
		domain.NewWeightValidator(decimal.NewFromInt(100)), logger)
	userSvc := services.NewUserService(userRepo, actionRepo, pollRepo, voteRepo)
	authSvc := services.NewAuthService(userRepo, authRepo, wallet.NewVerifier(), jwtSecret, logger)

	router := handler.NewHandler(handler.Handlers{
		Poll: handler.NewPollHandler(pollSvc),
		Vote: handler.NewVoteHandler(voteSvc),
		User: handler.NewUserHandler(userSvc),
		Auth: handler.NewAuthHandler(authSvc, "", false),
	}, authSvc, logger, []string{"*"})

	server := httptest.NewServer(router)

	return &TestApp{
		DB:          db,
		Server:      server,
		Client:      server.Client(),
		Reconcile:   services.NewReconcileService(tx, userRepo, pollRepo, counters, logger),
		DBContainer: dbContainer,
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}

// createUserAndToken inserts a user with the given wallet identity and mints
// an access token for it.
func (app *TestApp) createUserAndToken(t *testing.T, worldID string) (int64, string) {
	t.Helper()

	var userID int64
	err := app.DB.QueryRow("INSERT INTO users (world_id, name) VALUES ($1, $2) RETURNING id", worldID, "User "+worldID).Scan(&userID)
	require.NoError(t, err)

	claims := jwt.MapClaims{
		"sub":     strconv.FormatInt(userID, 10),
		"worldID": worldID,
		"address": worldID,
		"exp":     time.Now().Add(15 * time.Minute).Unix(),
		"iat":     time.Now().Unix(),
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return userID, signedToken
}

// do sends a JSON request, authenticated with token when it is not empty.
func (app *TestApp) do(t *testing.T, method, path, token string, payload interface{}) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, app.Server.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	}

	resp, err := app.Client.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// createPoll publishes a poll that opened an hour ago and closes in end.
func (app *TestApp) createPoll(t *testing.T, worldID, title string, end time.Duration) int64 {
	t.Helper()

	var authorID int64
	require.NoError(t, app.DB.QueryRow("SELECT id FROM users WHERE world_id = $1", worldID).Scan(&authorID))

	var pollID int64
	err := app.DB.QueryRow(`
		INSERT INTO polls (author_user_id, title, description, options, start_date, end_date, tags, status)
		VALUES ($1, $2, '', '{A,B}', NOW() - INTERVAL '1 hour', NOW() + make_interval(secs => $3), '{}', 'PUBLISHED')
		RETURNING id`, authorID, title, end.Seconds()).Scan(&pollID)
	require.NoError(t, err)

	_, err = app.DB.Exec(`INSERT INTO user_actions (id, user_id, poll_id, type) VALUES (gen_random_uuid(), $1, $2, 'CREATED')`, authorID, pollID)
	require.NoError(t, err)
	return pollID
}
