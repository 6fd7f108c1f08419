package game

import (
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"metasquares/internal/adapters"
	"metasquares/internal/bootstrap"
	"metasquares/internal/bot"
	"metasquares/internal/delivery/auth"
	"metasquares/internal/domain/game"
	errs "metasquares/internal/errors"
	"metasquares/internal/httpresponse"
	repo "metasquares/internal/repository"
	gameuc "metasquares/internal/usecase/game"
	matchuc "metasquares/internal/usecase/match"
	"metasquares/internal/utils"
)

type GameHandler struct {
	cfg         bootstrap.Config
	log         *zap.SugaredLogger
	gameUC      *gameuc.GameUseCase
	matchUC     *matchuc.MatchUseCase
	ratingRepo  *repo.RatingRepository
	authHandler *auth.AuthHandler
	hub         *liveHub
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func NewGameHandler(cfg bootstrap.Config, log *zap.SugaredLogger, mongoAdapter *adapters.AdapterMongo, redisAdapter *adapters.AdapterRedis, authHandler *auth.AuthHandler) *GameHandler {
	gameRepo := repo.NewGameRepository(cfg, log, redisAdapter.GetClient(), mongoAdapter.Database)
	matchRepo := repo.NewMatchmakingRepository(redisAdapter.GetClient())
	ratingRepo := repo.NewRatingRepository(log, mongoAdapter.Database)
	userRepo := repo.NewMongoUserStorage(mongoAdapter)

	botEngine := bot.NewEngine(rand.New(rand.NewSource(time.Now().UnixNano())))

	return &GameHandler{
		cfg: cfg,
		log: log,
		gameUC: gameuc.NewGameUseCase(
			gameRepo, matchRepo, ratingRepo, userRepo, botEngine, log,
			cfg.GameIdleTTL(), cfg.ScoreGoal,
		),
		matchUC:     matchuc.NewMatchUseCase(gameRepo, matchRepo, log),
		ratingRepo:  ratingRepo,
		authHandler: authHandler,
		hub:         newLiveHub(),
	}
}

type MoveRequest struct {
	GameID string `json:"game_id"`
	Board  []int  `json:"board"`
}

type MoveResponse struct {
	Accepted bool `json:"accepted"`
	Ended    bool `json:"ended"`
}

type GameIDRequest struct {
	GameID string `json:"game_id"`
}

type SoloGameRequest struct {
	Profile string `json:"profile"`
}

type StateResponse struct {
	Board       game.Board `json:"board"`
	Turn        string     `json:"turn"`
	Ended       bool       `json:"ended"`
	EndedReason string     `json:"ended_reason,omitempty"`
	VictorSide  string     `json:"victor_side,omitempty"`
	ScoreBlack  int        `json:"score_black"`
	ScoreWhite  int        `json:"score_white"`
	LastMove    int        `json:"last_move"`
}

func stateFromGame(g *game.Game) StateResponse {
	resp := StateResponse{
		Board:      g.Board,
		Turn:       g.WhoIsNext.String(),
		Ended:      g.Finished(),
		ScoreBlack: g.PlayerByColor(game.Black).Score,
		ScoreWhite: g.PlayerByColor(game.White).Score,
		LastMove:   g.LastMove,
	}
	if resp.Ended {
		resp.EndedReason = g.EndReason
		if g.Victor != game.Empty {
			resp.VictorSide = g.Victor.String()
		}
	}
	return resp
}

// HandleFindGame ставит игрока в очередь либо возвращает созданную пару.
func (g *GameHandler) HandleFindGame(w http.ResponseWriter, r *http.Request) {
	userID := g.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	result, err := g.matchUC.FindGame(r.Context(), userID)
	if err != nil {
		g.log.Error(err)
		httpresponse.WriteError(w, err)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, result)
}

// HandleSoloGame создаёт игру против бота с выбранным профилем.
func (g *GameHandler) HandleSoloGame(w http.ResponseWriter, r *http.Request) {
	userID := g.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	var req SoloGameRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		g.log.Error("SoloGame: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	newGame, err := g.matchUC.SoloGame(r.Context(), userID, req.Profile)
	if err != nil {
		g.log.Error(err)
		httpresponse.WriteError(w, err)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, matchuc.PairResult{
		Paired:       true,
		GameKey:      newGame.GameKey,
		Board:        &newGame.Board,
		IsFirstMover: true,
	})
}

// HandleMove принимает ход: клиент присылает полный снимок доски,
// сервер сам выводит очки и завершение.
func (g *GameHandler) HandleMove(w http.ResponseWriter, r *http.Request) {
	userID := g.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	var req MoveRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		g.log.Error("Move: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	board, ok := boardFromInts(req.Board)
	if !ok || req.GameID == "" {
		g.log.Errorf("Move: неверный размер доски или пустой game_id от %s", userID)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: "board must be 64 cells of 0..2"})
		return
	}

	ended, err := g.gameUC.SubmitMove(r.Context(), userID, req.GameID, board)
	if err != nil {
		g.log.Infof("Move: отклонён ход от %s в игре %s: %v", userID, req.GameID, err)
		httpresponse.WriteError(w, err)
		return
	}

	g.notifyGame(r, req.GameID, userID)
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, MoveResponse{Accepted: true, Ended: ended})
}

// HandleBotMove заставляет бота сделать ход в одиночной игре вызывающего.
func (g *GameHandler) HandleBotMove(w http.ResponseWriter, r *http.Request) {
	userID := g.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	var req GameIDRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		g.log.Error("BotMove: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	cell, ended, err := g.gameUC.SubmitBotMove(r.Context(), userID, req.GameID)
	if err != nil {
		g.log.Infof("BotMove: отклонён в игре %s: %v", req.GameID, err)
		httpresponse.WriteError(w, err)
		return
	}

	g.notifyGame(r, req.GameID, "")
	httpresponse.WriteResponseWithStatus(w, http.StatusOK, struct {
		BotMove int  `json:"bot_move"`
		Ended   bool `json:"ended"`
	}{BotMove: cell, Ended: ended})
}

// HandleGetGame возвращает текущее состояние; простоявшие игры лениво
// удаляются и отдаются со статусом 410.
func (g *GameHandler) HandleGetGame(w http.ResponseWriter, r *http.Request) {
	userID := g.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	var req GameIDRequest
	if err := utils.DecodeJSONRequest(r, &req); err != nil {
		g.log.Error("GetGame: ", err)
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: httpresponse.MALFORMEDJSON_errorDesc})
		return
	}

	state, err := g.gameUC.GetState(r.Context(), userID, req.GameID)
	if err != nil {
		httpresponse.WriteError(w, err)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, stateFromGame(&state))
}

// HandleLeaveGame помечает игру покинутой в пользу соперника.
func (g *GameHandler) HandleLeaveGame(w http.ResponseWriter, r *http.Request) {
	userID := g.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	if err := g.gameUC.Leave(r.Context(), userID); err != nil {
		g.log.Error(err)
		httpresponse.WriteError(w, err)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, nil)
}

// HandleMyRating отдаёт все рейтинговые корзины пользователя.
func (g *GameHandler) HandleMyRating(w http.ResponseWriter, r *http.Request) {
	userID := g.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	ratings, err := g.ratingRepo.GetAllByUser(r.Context(), userID)
	if err != nil {
		httpresponse.WriteError(w, errs.ErrInternal)
		return
	}

	httpresponse.WriteResponseWithStatus(w, http.StatusOK, ratings)
}

// notifyGame рассылает свежее состояние подключённым по websocket,
// кроме самого автора хода.
func (g *GameHandler) notifyGame(r *http.Request, gameKey, exceptUserID string) {
	if !g.hub.hasListeners(gameKey) {
		return
	}
	state, err := g.gameUC.GetState(r.Context(), exceptUserID, gameKey)
	if err != nil {
		g.log.Errorf("notify %s: %v", gameKey, err)
		return
	}
	g.hub.broadcast(gameKey, exceptUserID, stateFromGame(&state))
}

func boardFromInts(cells []int) (game.Board, bool) {
	var board game.Board
	if len(cells) != game.BoardCells {
		return board, false
	}
	for i, v := range cells {
		if v < 0 || v > int(game.White) {
			return board, false
		}
		board[i] = game.Cell(v)
	}
	return board, true
}

// liveHub держит websocket-подключения активных игр. Только соединения:
// состояние игры живёт в хранилище, а не здесь.
type liveHub struct {
	mu    sync.RWMutex
	conns map[string]map[string]*websocket.Conn // gameKey -> userID -> conn
}

func newLiveHub() *liveHub {
	return &liveHub{conns: make(map[string]map[string]*websocket.Conn)}
}

func (h *liveHub) register(gameKey, userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[gameKey] == nil {
		h.conns[gameKey] = make(map[string]*websocket.Conn)
	}
	if old, ok := h.conns[gameKey][userID]; ok {
		old.WriteMessage(websocket.TextMessage, []byte("Вы были отключены, новое соединение создано."))
		old.Close()
	}
	h.conns[gameKey][userID] = conn
}

func (h *liveHub) unregister(gameKey, userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[gameKey][userID] == conn {
		delete(h.conns[gameKey], userID)
		if len(h.conns[gameKey]) == 0 {
			delete(h.conns, gameKey)
		}
	}
}

func (h *liveHub) hasListeners(gameKey string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns[gameKey]) > 0
}

func (h *liveHub) broadcast(gameKey, exceptUserID string, payload any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for userID, conn := range h.conns[gameKey] {
		if userID == exceptUserID {
			continue
		}
		if err := conn.WriteJSON(payload); err != nil {
			conn.Close()
			delete(h.conns[gameKey], userID)
		}
	}
}

// HandleLiveGame поднимает websocket, по которому участник получает
// состояние игры после каждого принятого хода. Ходы по-прежнему
// отправляются через POST /move; сокет только для доставки.
func (g *GameHandler) HandleLiveGame(w http.ResponseWriter, r *http.Request) {
	userID := g.authHandler.GetUserID(w, r)
	if userID == "" {
		return
	}

	gameKey := r.URL.Query().Get("game_id")
	if gameKey == "" {
		g.log.Error("LiveGame: отсутствует game_id")
		httpresponse.WriteResponseWithStatus(w, http.StatusBadRequest,
			httpresponse.ErrorResponse{ErrorDescription: "missing game_id"})
		return
	}

	state, err := g.gameUC.GetState(r.Context(), userID, gameKey)
	if err != nil {
		httpresponse.WriteError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Error("upgrade error: ", err)
		return
	}

	g.hub.register(gameKey, userID, conn)
	defer g.hub.unregister(gameKey, userID, conn)
	defer conn.Close()

	if err = conn.WriteJSON(stateFromGame(&state)); err != nil {
		return
	}

	// читаем только чтобы заметить закрытие соединения
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
