package taskhub_test

import (
	"os"
	"strings"
	"testing"
)

func readRepoFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("failed to read %s: %v", name, err)
	}
	return string(data)
}

// lastStage はDockerfileの最後のFROM行を返す。
func lastStage(dockerfile string) string {
	var last string
	for _, line := range strings.Split(dockerfile, "\n") {
		if line = strings.TrimSpace(line); strings.HasPrefix(line, "FROM ") {
			last = line
		}
	}
	return last
}

func TestDockerfile(t *testing.T) {
	content := readRepoFile(t, "Dockerfile")

	checks := []struct {
		name string
		want string
	}{
		{"GoBuilderStage", "FROM golang:"},
		{"BuildsTaskhubBinary", "./cmd/taskhub"},
		{"StaticBinary", "CGO_ENABLED=0"},
		{"HealthcheckSubcommand", `"healthcheck"`},
		{"Entrypoint", "ENTRYPOINT"},
		{"RunsAsNonRoot", "USER nonroot"},
	}
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if !strings.Contains(content, c.want) {
				t.Errorf("Dockerfile should contain %q", c.want)
			}
		})
	}

	if stage := lastStage(content); !strings.Contains(stage, "distroless") {
		t.Errorf("runtime stage should be distroless, got %q", stage)
	}
}

func TestDockerCompose(t *testing.T) {
	content := readRepoFile(t, "docker-compose.yml")

	checks := []struct {
		name string
		want string
	}{
		{"APIService", "\n  api:"},
		{"MigrateService", "\n  migrate:"},
		{"DatabaseService", "\n  db:"},
		{"PostgresImage", "image: postgres:"},
		{"MigrateRunsMigrateCommand", `command: ["migrate"]`},
		{"APIWaitsForMigration", "service_completed_successfully"},
		{"MigrateWaitsForHealthyDB", "service_healthy"},
		{"InternalBackendNetwork", "internal: true"},
	}
	for _, c := range checks {
		t.Run(c.name, func(t *testing.T) {
			if !strings.Contains(content, c.want) {
				t.Errorf("docker-compose.yml should contain %q", c.want)
			}
		})
	}
}

func TestEnvExample(t *testing.T) {
	content := readRepoFile(t, ".env.example")

	for _, key := range []string{"JWT_SECRET=", "JWT_EXPIRES_IN=", "DB_HOST=", "SERVER_PORT=", "CORS_ALLOWED_ORIGIN="} {
		if !strings.Contains(content, key) {
			t.Errorf(".env.example should list %s", strings.TrimSuffix(key, "="))
		}
	}
}
