package types

// Request and response bodies of the game server's command, lobby and auth
// endpoints.

// POST /juego/crear, /juego/unirse, /juego/iniciar, /juego/revancha/crear
type JuegoResponse struct {
	Message string `json:"message"`
	Juego   *Juego `json:"juego,omitempty"`
}

// POST /juego/unirse
type UnirseRequest struct {
	CodigoJuego int64 `json:"codigoJuego"`
}

// POST /juego/marcar-ficha
type MarcarFichaRequest struct {
	Posicion int `json:"posicion"`
}

type MarcarFichaResponse struct {
	Message          string `json:"message"`
	TotalFichas      int    `json:"totalFichas"`
	CartillaCompleta bool   `json:"cartillaCompleta"`
	EsTramposo       bool   `json:"esTramposo,omitempty"`
	Ganador          bool   `json:"ganador,omitempty"`
	Expulsado        bool   `json:"expulsado,omitempty"`
}

// POST /juego/revelar-carta
type RevelarCartaResponse struct {
	Message              string    `json:"message"`
	Carta                MazoCarta `json:"carta"`
	TotalCartasReveladas int       `json:"totalCartasReveladas"`
	TotalCartas          int       `json:"totalCartas"`
}

// POST /juego/revancha/confirmar
type ConfirmarRevanchaRequest struct {
	Acepta bool `json:"acepta"`
}

// GET /juego/listar?page=N
type ListarPartidasResponse struct {
	Message  string    `json:"message"`
	Partidas []Partida `json:"partidas"`
	Meta     PageMeta  `json:"meta"`
}

type Partida struct {
	ID             int64  `json:"id"`
	AnfitrionEmail string `json:"anfitrionEmail"`
	MaxJugadores   int    `json:"maxJugadores"`
	TotalJugadores int    `json:"totalJugadores"`
	CreadoEn       string `json:"creadoEn"`
}

type PageMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
}

// Generic {message} body, also used for error responses.
type MessageResponse struct {
	Message string `json:"message"`
}

// POST /auth/login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /auth/login, /auth/refresh, GET /auth/me
type AuthResponse struct {
	Message string    `json:"message"`
	User    *AuthUser `json:"user,omitempty"`
	Token   *Token    `json:"token,omitempty"`
}

type AuthUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type Token struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}
