package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
)

// Produto is an item in the fake catalogue.
type Produto struct {
	ID      string
	Tipo    string
	Titulo  string
	Preco   float64
	Estado  string
	Vendido bool
	Extras  map[string]any
}

func (p *Produto) toMap() map[string]any {
	m := make(map[string]any, len(p.Extras)+6)
	for k, v := range p.Extras {
		m[k] = v
	}
	m["id"] = p.ID
	m["tipo"] = p.Tipo
	m["titulo"] = p.Titulo
	m["preco"] = p.Preco
	m["estado"] = p.Estado
	m["vendido"] = p.Vendido
	return m
}

// RecordedRequest is a request as received by the fake server.
type RecordedRequest struct {
	Method      string
	Path        string
	Query       string
	ContentType string
	Body        string
}

// SeboServer is an in-process stand-in for the Sebo catalogue API. It serves
// both the resource routes and POST /invoke over the same seeded stock.
type SeboServer struct {
	*httptest.Server

	mu       sync.Mutex
	estoque  map[string]*Produto
	requests []RecordedRequest
}

// NewSeboServer starts a fake server seeded with the standard stock
// (L1, L2, E1, E2, A1, A2, C1). It is closed when the test ends.
func NewSeboServer(t testing.TB) *SeboServer {
	t.Helper()

	s := &SeboServer{estoque: seedEstoque()}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /produtos", s.handleListar)
	mux.HandleFunc("GET /produtos/{id}", s.handleObter)
	mux.HandleFunc("POST /produtos", s.handleCadastrar)
	mux.HandleFunc("DELETE /produtos/{id}", s.handleRemover)
	mux.HandleFunc("POST /produtos/{id}/venda", s.handleVender)
	mux.HandleFunc("POST /transacoes/troca", s.handleTroca)
	mux.HandleFunc("POST /invoke", s.handleInvoke)

	s.Server = httptest.NewServer(s.record(mux))
	t.Cleanup(s.Close)
	return s
}

func seedEstoque() map[string]*Produto {
	items := []*Produto{
		{ID: "L1", Tipo: "livro", Titulo: "Clean Code", Preco: 120.0, Estado: "novo",
			Extras: map[string]any{"autor": "Robert C. Martin", "isbn": "978-0132350884", "paginas": 464, "genero": "Engenharia"}},
		{ID: "L2", Tipo: "livro", Titulo: "O Senhor dos Anéis", Preco: 90.0, Estado: "usado",
			Extras: map[string]any{"autor": "J.R.R. Tolkien", "isbn": "978-8595084757", "paginas": 1200, "genero": "Fantasia"}},
		{ID: "E1", Tipo: "ebook", Titulo: "Python Fluente", Preco: 60.0, Estado: "novo",
			Extras: map[string]any{"autor": "Luciano Ramalho", "isbn": "978-8575224625", "formato": "PDF", "tamanho_mb": 12.5, "drm": false}},
		{ID: "E2", Tipo: "ebook", Titulo: "Python Cookbook", Preco: 62.0, Estado: "novo",
			Extras: map[string]any{"autor": "Beazley", "isbn": "978", "formato": "PDF", "tamanho_mb": 15.0, "drm": false}},
		{ID: "A1", Tipo: "apostila", Titulo: "Cálculo I - Exercícios", Preco: 30.0, Estado: "usado",
			Extras: map[string]any{"materia": "Cálculo", "instituicao": "UF"}},
		{ID: "A2", Tipo: "apostila", Titulo: "Cálculo II", Preco: 28.0, Estado: "usado",
			Extras: map[string]any{"materia": "Cálculo", "instituicao": "UF"}},
		{ID: "C1", Tipo: "cd", Titulo: "Kind of Blue", Preco: 40.0, Estado: "novo",
			Extras: map[string]any{"artista": "Miles Davis", "genero": "Jazz", "faixas": 5}},
	}
	estoque := make(map[string]*Produto, len(items))
	for _, p := range items {
		estoque[p.ID] = p
	}
	return estoque
}

// Requests returns a copy of every request received so far, in order.
func (s *SeboServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// Produto returns a copy of the item with the given id.
func (s *SeboServer) Produto(id string) (Produto, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.estoque[id]
	if !ok {
		return Produto{}, false
	}
	return *p, true
}

func (s *SeboServer) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body.Close()

		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			Query:       r.URL.RawQuery,
			ContentType: r.Header.Get("Content-Type"),
			Body:        string(body),
		})
		s.mu.Unlock()

		r.Body = io.NopCloser(strings.NewReader(string(body)))
		next.ServeHTTP(w, r)
	})
}

// catalogue operations; callers hold s.mu

func (s *SeboServer) listar(tipo string) []map[string]any {
	ids := make([]string, 0, len(s.estoque))
	for id, p := range s.estoque {
		if tipo == "" || strings.EqualFold(p.Tipo, tipo) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.estoque[id].toMap())
	}
	return out
}

func (s *SeboServer) buscar(termo string) []map[string]any {
	termo = strings.ToLower(termo)
	out := []map[string]any{}
	for _, p := range s.listar("") {
		titulo, _ := p["titulo"].(string)
		autor, _ := p["autor"].(string)
		if strings.Contains(strings.ToLower(titulo), termo) || strings.Contains(strings.ToLower(autor), termo) {
			out = append(out, p)
		}
	}
	return out
}

type notFoundError struct{ msg string }

func (e *notFoundError) Error() string { return e.msg }

func (s *SeboServer) trocar(a, b string) (map[string]any, error) {
	pa, okA := s.estoque[a]
	pb, okB := s.estoque[b]
	if !okA || !okB {
		return nil, &notFoundError{"Um dos produtos não foi encontrado"}
	}
	if a == b {
		return nil, fmt.Errorf("Não é possível trocar um produto por ele mesmo")
	}
	if pa.Vendido || pb.Vendido {
		return nil, fmt.Errorf("Produto vendido não pode ser trocado")
	}
	if pa.Tipo != pb.Tipo {
		return nil, fmt.Errorf("Troca permitida apenas entre produtos do mesmo tipo (%s != %s)", pa.Tipo, pb.Tipo)
	}
	return map[string]any{
		"mensagem":  "Troca realizada com sucesso",
		"produto_a": pa.toMap(),
		"produto_b": pb.toMap(),
	}, nil
}

func (s *SeboServer) vender(id string) (map[string]any, error) {
	p, ok := s.estoque[id]
	if !ok {
		return nil, &notFoundError{"Produto não encontrado"}
	}
	if p.Vendido {
		return nil, fmt.Errorf("Produto '%s' já foi vendido", id)
	}
	p.Vendido = true
	return p.toMap(), nil
}

// resource routes

func (s *SeboServer) handleListar(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if termo := r.URL.Query().Get("termo"); termo != "" {
		writeJSON(w, http.StatusOK, s.buscar(termo))
		return
	}
	writeJSON(w, http.StatusOK, s.listar(r.URL.Query().Get("tipo")))
}

func (s *SeboServer) handleObter(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.estoque[r.PathValue("id")]
	if !ok {
		writeDetail(w, http.StatusNotFound, "Produto não encontrado")
		return
	}
	writeJSON(w, http.StatusOK, p.toMap())
}

type produtoCreate struct {
	ID          string         `json:"id"`
	TipoProduto string         `json:"tipo_produto"`
	Titulo      string         `json:"titulo"`
	Preco       *float64       `json:"preco"`
	Estado      string         `json:"estado"`
	Extras      map[string]any `json:"extras"`
}

func (s *SeboServer) handleCadastrar(w http.ResponseWriter, r *http.Request) {
	var item produtoCreate
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "corpo inválido: "+err.Error())
		return
	}
	if item.ID == "" || item.TipoProduto == "" || item.Titulo == "" || item.Preco == nil || item.Estado == "" || item.Extras == nil {
		writeDetail(w, http.StatusUnprocessableEntity, "campos obrigatórios: id, tipo_produto, titulo, preco, estado, extras")
		return
	}

	tipo := strings.ToLower(item.TipoProduto)
	switch tipo {
	case "livro", "ebook", "apostila", "cd":
	default:
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Tipo de produto '%s' inválido.", tipo))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.estoque[item.ID]; exists {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("Produto com id '%s' já existe", item.ID))
		return
	}
	p := &Produto{
		ID:     item.ID,
		Tipo:   tipo,
		Titulo: item.Titulo,
		Preco:  *item.Preco,
		Estado: item.Estado,
		Extras: item.Extras,
	}
	s.estoque[p.ID] = p
	writeJSON(w, http.StatusCreated, p.toMap())
}

func (s *SeboServer) handleRemover(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := r.PathValue("id")
	if _, ok := s.estoque[id]; !ok {
		writeDetail(w, http.StatusNotFound, "Produto não encontrado")
		return
	}
	delete(s.estoque, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *SeboServer) handleVender(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.vender(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensagem": "Venda realizada com sucesso",
		"produto":  p,
	})
}

func (s *SeboServer) handleTroca(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProdutoA string `json:"produto_a_id"`
		ProdutoB string `json:"produto_b_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProdutoA == "" || req.ProdutoB == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "campos obrigatórios: produto_a_id, produto_b_id")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.trocar(req.ProdutoA, req.ProdutoB)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// invocation route

type invokeRequest struct {
	RequestID       *int64 `json:"requestId"`
	ObjectReference string `json:"objectReference"`
	MethodID        string `json:"methodId"`
	Arguments       struct {
		Args   []any          `json:"args"`
		Kwargs map[string]any `json:"kwargs"`
	} `json:"arguments"`
}

type invokeReply struct {
	RequestID   *int64  `json:"requestId"`
	IsException bool    `json:"isException"`
	Result      any     `json:"result"`
	Error       *string `json:"error"`
}

func (s *SeboServer) handleInvoke(w http.ResponseWriter, r *http.Request) {
	var req invokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ObjectReference == "" || req.MethodID == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "envelope inválido")
		return
	}

	s.mu.Lock()
	result, err := s.dispatch(req.ObjectReference, req.MethodID, req.Arguments.Args)
	s.mu.Unlock()

	if err != nil {
		msg := err.Error()
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"detail": invokeReply{RequestID: req.RequestID, IsException: true, Error: &msg},
		})
		return
	}
	writeJSON(w, http.StatusOK, invokeReply{RequestID: req.RequestID, Result: result})
}

func (s *SeboServer) dispatch(object, method string, args []any) (any, error) {
	str := func(i int) (string, error) {
		if i >= len(args) {
			return "", fmt.Errorf("%s() faltando argumento posicional %d", method, i+1)
		}
		v, ok := args[i].(string)
		if !ok {
			return "", fmt.Errorf("%s() argumento %d deve ser texto", method, i+1)
		}
		return v, nil
	}

	switch object {
	case "CatalogoService":
		switch method {
		case "listar":
			tipo := ""
			if len(args) > 0 {
				t, err := str(0)
				if err != nil {
					return nil, err
				}
				tipo = t
			}
			return s.listar(tipo), nil
		case "buscar":
			termo, err := str(0)
			if err != nil {
				return nil, err
			}
			return s.buscar(termo), nil
		}
	case "TransacaoService":
		switch method {
		case "trocar":
			a, err := str(0)
			if err != nil {
				return nil, err
			}
			b, err := str(1)
			if err != nil {
				return nil, err
			}
			return s.trocar(a, b)
		case "vender":
			id, err := str(0)
			if err != nil {
				return nil, err
			}
			return s.vender(id)
		}
	default:
		return nil, fmt.Errorf("Serviço '%s' não encontrado.", object)
	}
	return nil, fmt.Errorf("Método '%s' não existe em '%s'.", method, object)
}

func writeServiceError(w http.ResponseWriter, err error) {
	if _, ok := err.(*notFoundError); ok {
		writeDetail(w, http.StatusNotFound, err.Error())
		return
	}
	writeDetail(w, http.StatusBadRequest, err.Error())
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]any{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
