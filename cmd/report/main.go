package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/OksanaKushniaryk/wellness-meter/internal/database"
	"github.com/OksanaKushniaryk/wellness-meter/internal/encoding"
	"github.com/OksanaKushniaryk/wellness-meter/internal/report"
)

const dateLayout = "2006-01-02"

type options struct {
	dataDir string
	userID  string
	from    string
	to      string
	pdfPath string
	pngPath string
}

func main() {
	// .env is optional, flags and real env take precedence
	_ = godotenv.Load()

	opts := parseFlags()

	db, err := database.NewDB(opts.dataDir)
	if err != nil {
		fatalf("failed to open database in %s: %v", opts.dataDir, err)
	}
	defer db.Close()

	repo := database.NewRepository(db)

	userID := opts.userID
	if userID == "" {
		userID, err = repo.MostRecentScoreUser()
		if err != nil {
			fatalf("failed to look up most recent user: %v", err)
		}
		if userID == "" {
			fatalf("no scores recorded yet, nothing to report")
		}
	}

	scores, err := repo.GetDailyScoresRange(userID, opts.from, opts.to)
	if err != nil {
		fatalf("failed to load scores: %v", err)
	}

	r := report.Build(opts.from, opts.to, scores, encoding.NewCodec())
	r.RenderText(os.Stdout)

	if opts.pngPath != "" {
		png, err := r.RenderChartPNG()
		if err != nil {
			fatalf("failed to render chart: %v", err)
		}
		if err := os.WriteFile(opts.pngPath, png, 0644); err != nil {
			fatalf("failed to write chart: %v", err)
		}
		fmt.Printf("\nChart written to %s\n", opts.pngPath)
	}

	if opts.pdfPath != "" {
		if err := r.WritePDF(opts.pdfPath); err != nil {
			fatalf("failed to write PDF: %v", err)
		}
		fmt.Printf("\nReport written to %s\n", opts.pdfPath)
	}
}

func parseFlags() options {
	today := time.Now().Format(dateLayout)
	monthAgo := time.Now().AddDate(0, 0, -29).Format(dateLayout)

	dataFlag := flag.String("data", getenv("DATA_DIR", "./data"), "Data directory containing wellness.db")
	userFlag := flag.String("user", "", "User ID to report on (defaults to the most recently scored user)")
	fromFlag := flag.String("from", monthAgo, "Range start, YYYY-MM-DD")
	toFlag := flag.String("to", today, "Range end, YYYY-MM-DD")
	pdfFlag := flag.String("pdf", "", "Write a PDF report to this path")
	pngFlag := flag.String("png", "", "Write the trend chart PNG to this path")
	flag.Parse()

	opts := options{
		dataDir: strings.TrimSpace(*dataFlag),
		userID:  strings.TrimSpace(*userFlag),
		from:    strings.TrimSpace(*fromFlag),
		to:      strings.TrimSpace(*toFlag),
		pdfPath: strings.TrimSpace(*pdfFlag),
		pngPath: strings.TrimSpace(*pngFlag),
	}

	if opts.dataDir == "" {
		fmt.Println("DATA_DIR or --data must be provided")
		os.Exit(2)
	}

	from, err := time.Parse(dateLayout, opts.from)
	if err != nil {
		fmt.Printf("--from must be YYYY-MM-DD, got %q\n", opts.from)
		os.Exit(2)
	}
	to, err := time.Parse(dateLayout, opts.to)
	if err != nil {
		fmt.Printf("--to must be YYYY-MM-DD, got %q\n", opts.to)
		os.Exit(2)
	}
	if to.Before(from) {
		fmt.Println("--to must not be before --from")
		os.Exit(2)
	}

	return opts
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
