package agent

import "strings"

// Category is a class of public-spending data a portal may publish.
type Category string

const (
	Licitacoes Category = "Licitações"
	Contratos  Category = "Contratos"
	Despesas   Category = "Despesas"
	Receitas   Category = "Receitas"
	Servidores Category = "Servidores"
	Diarias    Category = "Diárias"
	Orcamento  Category = "Orçamento"
	Convenios  Category = "Convênios"
)

// Vocabulary is the fixed set categories are sampled from.
var Vocabulary = []Category{
	Licitacoes,
	Contratos,
	Despesas,
	Receitas,
	Servidores,
	Diarias,
	Orcamento,
	Convenios,
}

// IsKnownCategory reports whether c belongs to Vocabulary.
func IsKnownCategory(c Category) bool {
	for _, v := range Vocabulary {
		if v == c {
			return true
		}
	}
	return false
}

// Formats are the data formats a portal can advertise.
var Formats = []string{"CSV", "XLS", "PDF", "XLSX", "JSON"}

// Status is the outcome of one simulated download.
type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
)

func (s Status) String() string {
	if s == StatusFailed {
		return "Erro"
	}
	return "Concluído"
}

type SearchInput struct {
	Locality string
	Region   string
}

// Complete reports whether both fields were filled in.
func (in SearchInput) Complete() bool {
	return in.Locality != "" && in.Region != ""
}

type PortalRecord struct {
	URL        string
	Title      string
	Categories []Category
	LastUpdate string
	Format     string
}

// HasCategory reports whether the portal publishes c.
func (p PortalRecord) HasCategory(c Category) bool {
	for _, pc := range p.Categories {
		if pc == c {
			return true
		}
	}
	return false
}

// CategoryList joins the categories the way the portals table shows them.
func (p PortalRecord) CategoryList() string {
	names := make([]string, len(p.Categories))
	for i, c := range p.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

type DownloadRecord struct {
	Portal   string
	Category Category
	Filename string
	Size     string
	Status   Status
}

// Succeeded is a template-friendly shortcut for Status == StatusSucceeded.
func (d DownloadRecord) Succeeded() bool {
	return d.Status == StatusSucceeded
}
