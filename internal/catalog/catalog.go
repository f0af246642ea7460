// Package catalog knows the Sebo API surface: its paths, remote objects and
// payloads, and the built-in plans that walk through them.
package catalog

import (
	"net/url"

	"github.com/roach88/sebo/internal/envelope"
	"github.com/roach88/sebo/internal/ir"
)

// Remote object references served by POST /invoke.
const (
	CatalogoService  = "CatalogoService"
	TransacaoService = "TransacaoService"
)

// Resource paths.
const (
	ProdutosPath = "/produtos"
	TrocaPath    = "/transacoes/troca"
)

// Product kinds accepted by the server.
const (
	TipoLivro    = "livro"
	TipoEbook    = "ebook"
	TipoApostila = "apostila"
	TipoCD       = "cd"
)

// ProdutoPath returns the path of a single product.
func ProdutoPath(id string) string {
	return ProdutosPath + "/" + url.PathEscape(id)
}

// VendaPath returns the sale path of a product.
func VendaPath(id string) string {
	return ProdutoPath(id) + "/venda"
}

// Produto is the registration payload for POST /produtos. Kind-specific
// attributes (autor, isbn, faixas, ...) go in Extras.
type Produto struct {
	ID          string
	TipoProduto string
	Titulo      string
	Preco       float64
	Estado      string
	Extras      ir.Object
}

// NewProduto creates a registration payload.
func NewProduto(id, tipo, titulo string, preco float64, estado string, extras ir.Object) Produto {
	return Produto{
		ID:          id,
		TipoProduto: tipo,
		Titulo:      titulo,
		Preco:       preco,
		Estado:      estado,
		Extras:      extras,
	}
}

// Value returns the payload as a structured value. Extras is always
// present, as {} when empty.
func (p Produto) Value() ir.Object {
	extras := p.Extras
	if extras == nil {
		extras = ir.Object{}
	}
	return ir.NewObject(
		ir.O("id", ir.String(p.ID)),
		ir.O("tipo_produto", ir.String(p.TipoProduto)),
		ir.O("titulo", ir.String(p.Titulo)),
		ir.O("preco", ir.Float(p.Preco)),
		ir.O("estado", ir.String(p.Estado)),
		ir.O("extras", extras),
	)
}

// LivroDeTeste is the T1 book registered and removed by the walk-through plans.
func LivroDeTeste() Produto {
	return NewProduto("T1", TipoLivro, "Livro de Teste (CRUD)", 10.5, "novo", ir.NewObject(
		ir.O("autor", ir.String("Autor Teste")),
		ir.O("isbn", ir.String("000-TESTE")),
		ir.O("paginas", ir.Int(123)),
		ir.O("genero", ir.String("Teste")),
	))
}

// Troca returns the exchange payload for two product ids.
func Troca(a, b string) ir.Object {
	return ir.NewObject(
		ir.O("produto_a_id", ir.String(a)),
		ir.O("produto_b_id", ir.String(b)),
	)
}

// Resource-style operations.

// Listar lists the whole catalogue.
func Listar() envelope.Operation {
	return envelope.Get(ProdutosPath).Named("listar")
}

// Buscar searches titles and authors for termo.
func Buscar(termo string) envelope.Operation {
	return envelope.Get(ProdutosPath + "?" + url.Values{"termo": {termo}}.Encode()).Named("buscar")
}

// Obter fetches one product.
func Obter(id string) envelope.Operation {
	return envelope.Get(ProdutoPath(id)).Named("obter_" + id)
}

// Cadastrar registers a product.
func Cadastrar(p Produto) envelope.Operation {
	return envelope.Post(ProdutosPath, p.Value()).Named("cadastrar_" + p.ID)
}

// Remover deletes a product.
func Remover(id string) envelope.Operation {
	return envelope.Delete(ProdutoPath(id)).Named("remover_" + id)
}

// Trocar exchanges two products.
func Trocar(a, b string) envelope.Operation {
	return envelope.Post(TrocaPath, Troca(a, b)).Named("trocar_" + a + "_" + b)
}

// Vender sells a product. The body is {}.
func Vender(id string) envelope.Operation {
	return envelope.Post(VendaPath(id), nil).Named("vender_" + id)
}

// Invocation-style operations.

// InvokeListar calls CatalogoService.listar().
func InvokeListar() envelope.Operation {
	return envelope.Invoke(CatalogoService, "listar").Named("listar")
}

// InvokeBuscar calls CatalogoService.buscar(termo).
func InvokeBuscar(termo string) envelope.Operation {
	return envelope.Invoke(CatalogoService, "buscar", ir.String(termo)).Named("buscar")
}

// InvokeTrocar calls TransacaoService.trocar(a, b).
func InvokeTrocar(a, b string) envelope.Operation {
	return envelope.Invoke(TransacaoService, "trocar", ir.String(a), ir.String(b)).Named("trocar_" + a + "_" + b)
}

// InvokeVender calls TransacaoService.vender(id).
func InvokeVender(id string) envelope.Operation {
	return envelope.Invoke(TransacaoService, "vender", ir.String(id)).Named("vender_" + id)
}

