// Package export turns a board into a Markdown document.
package export

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"

	"github.com/gmllt/dtnboard/internal/board"
	"github.com/gmllt/dtnboard/internal/form"
)

const documentHTML = `<h1>{{.Title}}</h1>
{{range .Columns}}<h2>{{.Title}} ({{len .Cards}})</h2>
{{if .Cards}}<table>
<thead><tr><th>Client</th><th>Catégorie</th><th>Date RDV</th><th>Téléphone</th><th>Email</th><th>Adresse</th><th>Notes</th></tr></thead>
<tbody>{{range .Cards}}
<tr><td>{{.Title}}</td><td>{{.Category}}</td><td>{{.Date}}</td><td>{{.Phone}}</td><td>{{.Email}}</td><td>{{.Address}}</td><td>{{.Notes}}</td></tr>{{end}}
</tbody>
</table>{{else}}<p><em>Aucune tâche</em></p>{{end}}
{{end}}`

var documentTmpl = template.Must(template.New("export").Parse(documentHTML))

type column struct {
	Title string
	Cards []form.Detail
}

type document struct {
	Title   string
	Columns []column
}

type Exporter struct {
	converter *md.Converter
}

func New() *Exporter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Exporter{converter: converter}
}

// HTML renders the board as a plain document, one table per column.
func HTML(title string, b *board.Board) (string, error) {
	doc := document{Title: title}
	for _, col := range b.Columns {
		c := column{Title: col.Title}
		for _, card := range col.Cards {
			c.Cards = append(c.Cards, form.NewDetail(col.ID, card))
		}
		doc.Columns = append(doc.Columns, c)
	}
	var buf bytes.Buffer
	if err := documentTmpl.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("render export: %w", err)
	}
	return buf.String(), nil
}

// Markdown renders the board as GitHub-flavored Markdown.
func (e *Exporter) Markdown(title string, b *board.Board) (string, error) {
	html, err := HTML(title, b)
	if err != nil {
		return "", err
	}
	out, err := e.converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert export: %w", err)
	}
	return strings.TrimSpace(out) + "\n", nil
}
