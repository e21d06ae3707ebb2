// package formatter renders title bundles and cached listings for CLI
// output (plain text, Markdown, CSV)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/brettbeeson/notsolong/internal/api"
)

// TitleHeading renders a one-line heading for a title: name, author, category.
func TitleHeading(title *api.Title) string {
	heading := title.Name
	if title.Author != "" {
		heading = fmt.Sprintf("%s — %s", heading, title.Author)
	}
	return fmt.Sprintf("%s [%s]", heading, title.Category)
}

// RecapAttribution names the recap's author for display.
func RecapAttribution(recap *api.Recap) string {
	if recap.User == nil {
		return "anonymous"
	}
	if recap.User.Username != "" {
		return recap.User.Username
	}
	return recap.User.Email
}

// BundleToText renders a bundle as plain text: the title line, then each
// recap with score and attribution.
func BundleToText(bundle *api.TitleBundle) []byte {
	var buf bytes.Buffer

	buf.WriteString(TitleHeading(&bundle.Title))
	buf.WriteString("\n\n")

	recaps := bundle.Recaps()
	if len(recaps) == 0 {
		buf.WriteString("No recaps yet.\n")
		return buf.Bytes()
	}

	for i, recap := range recaps {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, strings.TrimSpace(recap.Text)))
		buf.WriteString(fmt.Sprintf("   %s, score %+d (%d up / %d down)\n", RecapAttribution(&recap), recap.Score, recap.Upvotes, recap.Downvotes))
		if i < len(recaps)-1 {
			buf.WriteString("\n")
		}
	}

	return buf.Bytes()
}

// BundleToMarkdown renders a bundle as Markdown with the top recap called out.
func BundleToMarkdown(bundle *api.TitleBundle) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", bundle.Title.Name))
	if bundle.Title.Author != "" {
		buf.WriteString(fmt.Sprintf("**Author**: %s\n", bundle.Title.Author))
	}
	buf.WriteString(fmt.Sprintf("**Category**: %s\n\n", bundle.Title.Category))

	if bundle.TopRecap != nil {
		buf.WriteString("## Top recap\n\n")
		buf.WriteString(fmt.Sprintf("> %s\n\n", strings.TrimSpace(bundle.TopRecap.Text)))
		buf.WriteString(fmt.Sprintf("— %s, score %+d\n\n", RecapAttribution(bundle.TopRecap), bundle.TopRecap.Score))
	}

	if len(bundle.OtherRecaps) > 0 {
		buf.WriteString("## Other recaps\n\n")
		for i, recap := range bundle.OtherRecaps {
			buf.WriteString(fmt.Sprintf("%d. %s (%s, score %+d)\n", i+1, strings.TrimSpace(recap.Text), RecapAttribution(&recap), recap.Score))
		}
	}

	return buf.Bytes()
}

// TitlesToCSV renders a title listing as CSV with columns: ID, Name, Category, Author
func TitlesToCSV(titles []api.Title) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Category", "Author"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, title := range titles {
		record := []string{
			strconv.Itoa(title.ID),
			title.Name,
			string(title.Category),
			title.Author,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}
