package types

// Wire shapes of the game server's match endpoints. Field names follow the
// server's JSON.

// GET /juego/estado
type EstadoJuegoResponse struct {
	Message  string    `json:"message"`
	Juego    *Juego    `json:"juego"`
	Usuario  Usuario   `json:"usuario"`
	Cartilla *Cartilla `json:"cartilla"`
}

type Juego struct {
	ID                     int64      `json:"id"`
	Estado                 string     `json:"estado"` // "esperando" | "iniciado" | "finalizado" | "revancha_pendiente"
	EsAnfitrion            bool       `json:"esAnfitrion,omitempty"`
	TotalJugadores         int        `json:"totalJugadores,omitempty"`
	MaxJugadores           int        `json:"maxJugadores,omitempty"`
	CartaActual            *MazoCarta `json:"cartaActual,omitempty"`
	TotalCartasAnunciadas  int        `json:"totalCartasAnunciadas,omitempty"`
	GanadorID              *int64     `json:"ganadorId,omitempty"`
	GanadorEmail           string     `json:"ganadorEmail,omitempty"`
	CartasAnunciadas       []int64    `json:"cartasAnunciadas,omitempty"`
	Tramposos              []Jugador  `json:"tramposos,omitempty"`
	ConfirmacionesRevancha []Jugador  `json:"confirmacionesRevancha,omitempty"`
}

type MazoCarta struct {
	ID     int64  `json:"id"`
	Numero int    `json:"numero"`
	Nombre string `json:"nombre"`
	Imagen string `json:"imagen"`
}

type Jugador struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type Usuario struct {
	ID          int64  `json:"id,omitempty"`
	Email       string `json:"email,omitempty"`
	EsAnfitrion bool   `json:"esAnfitrion"`
	EsTramposo  bool   `json:"esTramposo"`
}

type Cartilla struct {
	Cartas []MazoCarta `json:"cartas"`
	Fichas []bool      `json:"fichas"`
}
