// Package report renders a session's portals, and the downloads of the
// request being answered, as a shareable Markdown document.
package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"

	"transparencia-agent/internal/agent"
	"transparencia-agent/internal/session"
)

// WriteMarkdown writes the report for snap to w. The downloads section is
// only written when downloads is not empty.
func WriteMarkdown(w io.Writer, snap session.Snapshot, downloads []agent.DownloadRecord) error {
	md := markdown.NewMarkdown(w)

	md.H1("Agente de Portais de Transparência")
	md.PlainText("")

	if !snap.Searched() {
		md.Note("Nenhuma busca realizada nesta sessão.")
		return md.Build()
	}

	writeSearch(md, snap)
	writePortals(md, snap)
	if len(downloads) > 0 {
		writeDownloads(md, downloads)
	}

	return md.Build()
}

func writeSearch(md *markdown.Markdown, snap session.Snapshot) {
	md.Table(markdown.TableSet{
		Header: []string{"Cidade", "Estado (UF)", "Portais"},
		Rows: [][]string{
			{snap.Input.Locality, snap.Input.Region, strconv.Itoa(len(snap.Portals))},
		},
	})
	md.PlainText("")
}

func writePortals(md *markdown.Markdown, snap session.Snapshot) {
	md.H2("Portais de Transparência Encontrados")
	md.PlainText("")

	if len(snap.Portals) == 0 {
		md.Warningf("Nenhum portal de transparência encontrado.")
		md.PlainText("")
		return
	}

	rows := make([][]string, 0, len(snap.Portals))
	for _, p := range snap.Portals {
		rows = append(rows, []string{p.Title, "`" + p.URL + "`", p.CategoryList(), p.LastUpdate, p.Format})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Portal", "URL", "Categorias", "Última Atualização", "Formato"},
		Rows:   rows,
	})
	md.PlainText("")
}

func writeDownloads(md *markdown.Markdown, downloads []agent.DownloadRecord) {
	md.H2("Resultados do Download")
	md.PlainText("")

	rows := make([][]string, 0, len(downloads))
	for _, d := range downloads {
		rows = append(rows, []string{d.Portal, string(d.Category), d.Filename, d.Size, d.Status.String()})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Portal", "Categoria", "Arquivo", "Tamanho", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	summary := session.Summarize(downloads)
	md.Tip("✅ " + strconv.Itoa(summary.Succeeded) + " arquivos baixados com sucesso")
	if summary.Failed > 0 {
		md.Warningf("❌ %d arquivos com erro", summary.Failed)
	}
	md.PlainText("")
}
