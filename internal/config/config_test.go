package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/example/studybuddy/internal/config"
)

var _ = Describe("Config", func() {
	var tempDir string

	envKeys := []string{
		"LOG_MODE", "UPLOAD_DIR", "DB_DRIVER", "DATABASE_URL", "AI_PROVIDER", "AI_MODEL",
		"AI_BASE_URL", "GEMINI_API_KEY", "OPENAI_API_KEY", "AI_API_KEY", "AI_TIMEOUT",
		"GOOGLE_APPLICATION_CREDENTIALS", "OCR_ENABLED", "TELEGRAM_BOT_TOKEN",
		"REMINDER_HOUR", "REVIEW_OFFSETS", "HTTP_ADDR", "CORS_ORIGINS",
	}

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "studybuddy-config-*")
		Expect(err).NotTo(HaveOccurred())

		wd, err := os.Getwd()
		Expect(err).NotTo(HaveOccurred())
		Expect(os.Chdir(tempDir)).To(Succeed())
		DeferCleanup(os.Chdir, wd)

		for _, k := range envKeys {
			if v, ok := os.LookupEnv(k); ok {
				DeferCleanup(os.Setenv, k, v)
			} else {
				DeferCleanup(os.Unsetenv, k)
			}
			Expect(os.Unsetenv(k)).To(Succeed())
		}
	})

	AfterEach(func() {
		Expect(os.RemoveAll(tempDir)).To(Succeed())
	})

	It("returns defaults without a file", func() {
		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Database.Driver).To(Equal("sqlite3"))
		Expect(cfg.AI.Provider).To(Equal("gemini"))
		Expect(cfg.AI.Timeout).To(Equal(60 * time.Second))
		Expect(cfg.Reviews.Offsets).To(Equal([]int{0, 1, 3, 7, 14, 30}))
		Expect(cfg.AI.APIKey).To(BeEmpty())
		Expect(cfg.Reminders.Enabled()).To(BeFalse())
		Expect(cfg.Server.Addr).To(Equal(":8080"))
	})

	It("reads the yaml file", func() {
		path := filepath.Join(tempDir, "config.yaml")
		Expect(os.WriteFile(path, []byte(`
log_mode: prod
database:
  driver: postgres
  dsn: postgres://localhost/studybuddy
ai:
  provider: openai
  model: gpt-4o-mini
  timeout: 15s
reviews:
  offsets: [0, 2, 5]
reminders:
  hour: 19
`), 0o644)).To(Succeed())

		cfg, err := config.Load(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.LogMode).To(Equal("prod"))
		Expect(cfg.Database.Driver).To(Equal("postgres"))
		Expect(cfg.AI.Provider).To(Equal("openai"))
		Expect(cfg.AI.Timeout).To(Equal(15 * time.Second))
		Expect(cfg.Reviews.Offsets).To(Equal([]int{0, 2, 5}))
		Expect(cfg.Reminders.Hour).To(Equal(19))
	})

	It("lets the environment override the file and .env", func() {
		Expect(os.WriteFile(filepath.Join(tempDir, ".env"), []byte("GEMINI_API_KEY=from-dotenv\n"), 0o644)).To(Succeed())
		DeferCleanup(os.Unsetenv, "GEMINI_API_KEY")
		Expect(os.Setenv("REVIEW_OFFSETS", "0, 1, 2")).To(Succeed())
		Expect(os.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "/etc/gcp.json")).To(Succeed())

		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.AI.APIKey).To(Equal("from-dotenv"))
		Expect(cfg.Reviews.Offsets).To(Equal([]int{0, 1, 2}))
		Expect(cfg.OCR.Enabled).To(BeTrue())
	})

	It("reads the server settings from the environment", func() {
		Expect(os.Setenv("HTTP_ADDR", "127.0.0.1:9000")).To(Succeed())
		Expect(os.Setenv("CORS_ORIGINS", "http://localhost:3000, https://study.example")).To(Succeed())

		cfg, err := config.Load("")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Addr).To(Equal("127.0.0.1:9000"))
		Expect(cfg.Server.AllowedOrigins).To(Equal([]string{"http://localhost:3000", "https://study.example"}))
	})

	DescribeTable("rejects invalid values",
		func(key, value string) {
			Expect(os.Setenv(key, value)).To(Succeed())
			_, err := config.Load("")
			Expect(err).To(HaveOccurred())
		},
		Entry("driver", "DB_DRIVER", "mysql"),
		Entry("provider", "AI_PROVIDER", "llama"),
		Entry("timeout", "AI_TIMEOUT", "soon"),
		Entry("hour", "REMINDER_HOUR", "25"),
		Entry("offsets", "REVIEW_OFFSETS", "0,x"),
	)
})
