package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"exam-practice-service/internal/app"
	"exam-practice-service/internal/domain"
	"exam-practice-service/internal/infra/memory"
	pgstore "exam-practice-service/internal/infra/postgres"
	pgmigrations "exam-practice-service/internal/infra/postgres/migrations"
	redisstore "exam-practice-service/internal/infra/redis"
)

func TestQuizLifecycleEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := openBun(t, ctx, pgURL)
	defer db.Close()

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	store := pgstore.NewStore(db)
	tokens := redisstore.NewTokenStore(redisClient, time.Hour)
	cache := memory.NewQuestionCache(store, time.Minute)

	auth := app.NewAuthService(store, tokens, time.Hour)
	catalog := app.NewCatalogService(store, store, cache)
	sessions := app.NewSessionService(store, store, store, pgstore.NewStatsReader(pool))

	admin, err := auth.Register(ctx, "admin", "secret123", domain.RoleAdmin)
	if err != nil {
		t.Fatalf("register admin: %v", err)
	}
	user, err := auth.Register(ctx, "alice", "secret123", domain.RoleUser)
	if err != nil {
		t.Fatalf("register user: %v", err)
	}

	// Tokens live in Redis end to end.
	_, token, err := auth.Login(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	identity, err := auth.Authenticate(ctx, token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if identity.UserID != user.ID {
		t.Fatalf("expected identity for %d, got %+v", user.ID, identity)
	}

	adminIdentity := app.Identity{UserID: admin.ID, Role: admin.Role}
	pkg, err := catalog.CreatePackage(ctx, adminIdentity, "Integration Tryout", nil, 30)
	if err != nil {
		t.Fatalf("create package: %v", err)
	}
	for i, correct := range []domain.AnswerOption{domain.OptionA, domain.OptionC, domain.OptionE} {
		if _, err := catalog.CreateQuestion(ctx, adminIdentity, domain.Question{
			QuizPackageID: pkg.ID,
			QuestionText:  fmt.Sprintf("question %d", i+1),
			OptionA:       "a", OptionB: "b", OptionC: "c", OptionD: "d", OptionE: "e",
			CorrectAnswer: correct,
			OrderNumber:   i + 1,
		}); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}

	refreshed, err := catalog.Package(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("package lookup: %v", err)
	}
	if refreshed.TotalQuestions != 3 {
		t.Fatalf("expected counter 3, got %d", refreshed.TotalQuestions)
	}

	session, err := sessions.Start(ctx, user.ID, pkg.ID)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if session.TimeRemainingSeconds != 1800 || session.TotalQuestions != 3 {
		t.Fatalf("unexpected session: %+v", session)
	}

	questions, err := catalog.Questions(ctx, pkg.ID)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	result, err := sessions.Complete(ctx, session.ID, []domain.AnswerSubmission{
		{QuestionID: questions[0].ID, SelectedAnswer: domain.OptionA},
		{QuestionID: questions[1].ID, SelectedAnswer: domain.OptionC},
		{QuestionID: questions[2].ID, SelectedAnswer: domain.OptionA},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.TotalCorrect != 2 || result.TotalScore != 67 {
		t.Fatalf("expected 2/3 for 67, got %d correct score %d", result.TotalCorrect, result.TotalScore)
	}

	if _, err := sessions.Complete(ctx, session.ID, nil); err != domain.ErrSessionCompleted {
		t.Fatalf("expected one-shot completion, got %v", err)
	}

	details, err := sessions.ResultDetails(ctx, session.ID)
	if err != nil {
		t.Fatalf("details: %v", err)
	}
	if len(details.Answers) != 3 {
		t.Fatalf("expected 3 answer rows, got %d", len(details.Answers))
	}
	if details.QuizPackageTitle != "Integration Tryout" {
		t.Fatalf("expected joined package title, got %q", details.QuizPackageTitle)
	}

	// Statistics come out of the pgx aggregate reader.
	stats, err := sessions.Statistics(ctx, user.ID)
	if err != nil {
		t.Fatalf("statistics: %v", err)
	}
	if stats.TotalQuizzesTaken != 1 || stats.TotalCorrectAnswers != 2 || stats.BestScore != 67 {
		t.Fatalf("unexpected statistics: %+v", stats)
	}
	if stats.TotalQuestionsAnswered != 3 {
		t.Fatalf("expected 3 answered, got %d", stats.TotalQuestionsAnswered)
	}
}

func openBun(t *testing.T, ctx context.Context, dsn string) *bun.DB {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "exam", "POSTGRES_PASSWORD": "exampass", "POSTGRES_DB": "examdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://exam:exampass@%s:%s/examdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
