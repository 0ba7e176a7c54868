package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/example/studybuddy/internal/database"
	"github.com/example/studybuddy/internal/excel"
	"github.com/example/studybuddy/internal/pipeline"
	"github.com/example/studybuddy/pkg/models"
)

// Credentials identify the user a command acts for
type Credentials struct {
	Username string
	Password string
}

// Signup creates an account
func (a *App) Signup(ctx context.Context, w io.Writer, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return errors.New("username and password are required")
	}
	user, err := a.Users.Create(ctx, username, password)
	if errors.Is(err, database.ErrUsernameTaken) {
		return fmt.Errorf("username %q already exists", username)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Registered %s (id %d)\n", user.Username, user.ID)
	return nil
}

// AddMaterial stores a material for today, copying file into the upload dir first
func (a *App) AddMaterial(ctx context.Context, w io.Writer, creds Credentials, title, notes, file string) error {
	userID, err := a.login(ctx, creds)
	if err != nil {
		return err
	}

	req := pipeline.UploadRequest{UserID: userID, Title: strings.TrimSpace(title), Notes: notes, UploadDate: a.Today()}
	if file != "" {
		if req.FilePath, err = pipeline.StageFile(a.Config.UploadDir, file); err != nil {
			return err
		}
	}

	res, err := a.Pipeline.Upload(ctx, req)
	if err != nil {
		pipeline.Unstage(req.FilePath, a.Log)
		return err
	}
	printUpload(w, res)
	return nil
}

func printUpload(w io.Writer, res *pipeline.UploadResult) {
	fmt.Fprintf(w, "Added material #%d %q\n", res.Material.ID, res.Material.Title)
	if res.Extraction != nil {
		fmt.Fprintf(w, "  text extraction: %s\n", res.Extraction.Reason)
	}
	if res.Synthesis != nil {
		fmt.Fprintf(w, "  summary and quiz: %s", res.Synthesis.Reason)
		if res.Synthesis.OK() {
			fmt.Fprintf(w, " (%d questions)", len(res.QuizItems))
		}
		fmt.Fprintln(w)
	}
	dates := make([]string, 0, len(res.Reviews))
	for _, r := range res.Reviews {
		dates = append(dates, r.ReviewDate)
	}
	fmt.Fprintf(w, "  reviews: %s\n", strings.Join(dates, ", "))
}

// ListMaterials prints the user's materials, newest first
func (a *App) ListMaterials(ctx context.Context, w io.Writer, creds Credentials) error {
	userID, err := a.login(ctx, creds)
	if err != nil {
		return err
	}
	materials, err := a.Materials.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	if len(materials) == 0 {
		fmt.Fprintln(w, "No materials yet.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUPLOADED\tTITLE\tNOTES")
	for _, m := range materials {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", m.ID, m.UploadDate, m.Title, oneLine(m.Notes))
	}
	return tw.Flush()
}

// ShowMaterial prints a material with its summary, quiz and schedule
func (a *App) ShowMaterial(ctx context.Context, w io.Writer, creds Credentials, materialID int64) error {
	userID, err := a.login(ctx, creds)
	if err != nil {
		return err
	}
	m, err := a.Materials.GetByID(ctx, userID, materialID)
	if err != nil {
		return fmt.Errorf("material %d: %w", materialID, err)
	}

	fmt.Fprintf(w, "#%d %s (uploaded %s)\n", m.ID, m.Title, m.UploadDate)
	if m.Notes != "" {
		fmt.Fprintf(w, "Notes: %s\n", m.Notes)
	}
	if m.FilePath != nil {
		fmt.Fprintf(w, "File: %s\n", *m.FilePath)
	}

	summary, err := a.Content.GetSummary(ctx, m.ID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		fmt.Fprintln(w, "\nNo summary available.")
	case err != nil:
		return err
	default:
		fmt.Fprintf(w, "\nSummary:\n%s\n", summary.Summary)
	}

	items, err := a.Content.ListQuiz(ctx, m.ID)
	if err != nil {
		return err
	}
	if len(items) > 0 {
		fmt.Fprintln(w, "\nQuiz:")
		for i, item := range items {
			fmt.Fprintf(w, "%d. %s\n   %s\n", i+1, item.Question, item.Answer)
		}

		attempts, err := a.Attempts.ListByMaterial(ctx, userID, m.ID)
		if err != nil {
			return err
		}
		if len(attempts) > 0 {
			fmt.Fprintln(w, "\nPractice:")
			for _, at := range attempts {
				fmt.Fprintf(w, "%s  %d/%d\n", at.AttemptedAt, at.Correct, at.Total)
			}
		}
	}

	reviews, err := a.Reviews.ListByMaterial(ctx, m.ID)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "\nReviews:")
	for _, r := range reviews {
		mark := " "
		if r.Done {
			mark = "x"
		}
		fmt.Fprintf(w, "[%s] #%d %s\n", mark, r.ID, r.ReviewDate)
	}
	return nil
}

// ListDue prints the reviews due on day, or today when day is empty
func (a *App) ListDue(ctx context.Context, w io.Writer, creds Credentials, day string) error {
	userID, err := a.login(ctx, creds)
	if err != nil {
		return err
	}
	if day == "" {
		day = models.FormatDate(a.Today())
	} else if _, err := models.ParseDate(day); err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", day)
	}

	due, err := a.Reviews.DueForUser(ctx, userID, day)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		fmt.Fprintf(w, "Nothing to review on %s.\n", day)
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "REVIEW\tMATERIAL\tTITLE\tNOTES")
	for _, d := range due {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", d.ReviewID, d.MaterialID, d.Title, oneLine(d.Notes))
	}
	return tw.Flush()
}

// MarkDone completes one of the user's reviews
func (a *App) MarkDone(ctx context.Context, w io.Writer, creds Credentials, reviewID int64) error {
	userID, err := a.login(ctx, creds)
	if err != nil {
		return err
	}
	if err := a.Reviews.MarkDone(ctx, userID, reviewID); err != nil {
		return fmt.Errorf("review %d: %w", reviewID, err)
	}
	stats, err := a.Reviews.Stats(ctx, userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Review #%d done. %d of %d reviews completed.\n", reviewID, stats.Done, stats.Total)
	return nil
}

// PracticeQuiz asks every question of a material on w, reads one answer per line from in
// and records the graded attempt.
func (a *App) PracticeQuiz(ctx context.Context, in io.Reader, w io.Writer, creds Credentials, materialID int64) error {
	userID, err := a.login(ctx, creds)
	if err != nil {
		return err
	}
	items, err := a.Quiz.Questions(ctx, userID, materialID)
	if err != nil {
		return fmt.Errorf("material %d: %w", materialID, err)
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "This material has no quiz.")
		return nil
	}

	scanner := bufio.NewScanner(in)
	answers := make([]string, 0, len(items))
	for i, item := range items {
		fmt.Fprintf(w, "%d/%d %s\n> ", i+1, len(items), item.Question)
		if !scanner.Scan() {
			break
		}
		answers = append(answers, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	fmt.Fprintln(w)

	attempt, graded, err := a.Quiz.Submit(ctx, userID, materialID, answers)
	if err != nil {
		return err
	}
	for i, g := range graded {
		if g.Correct {
			fmt.Fprintf(w, "%d. correct\n", i+1)
			continue
		}
		fmt.Fprintf(w, "%d. wrong, expected: %s\n", i+1, g.Item.Answer)
	}
	fmt.Fprintf(w, "Score: %d/%d\n", attempt.Correct, attempt.Total)
	return nil
}

// Import loads materials from a spreadsheet or CSV file
func (a *App) Import(ctx context.Context, w io.Writer, creds Credentials, cfg excel.ImportConfig) error {
	userID, err := a.login(ctx, creds)
	if err != nil {
		return err
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = a.Config.UploadDir
	}
	result, err := a.Importer.Import(ctx, userID, cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Imported %d of %d rows.\n", result.Created, result.TotalProcessed)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	return nil
}

func oneLine(s string) string {
	r := []rune(strings.Join(strings.Fields(s), " "))
	if len(r) > 40 {
		return string(r[:37]) + "..."
	}
	return string(r)
}
