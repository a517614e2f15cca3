package protocol

// Request tags sent by the client.
const (
	ReqLogin       = "REQ_LOGIN"
	ReqLogout      = "REQ_LOGOUT"
	ReqCreateLobby = "REQ_CREATE_LOBBY"
	ReqJoinLobby   = "REQ_JOIN_LOBBY"
	ReqLeaveLobby  = "REQ_LEAVE_LOBBY"
	ReqMove        = "REQ_MOVE"
	ReqRematch     = "REQ_REMATCH"
	ReqPong        = "REQ_PONG"
	ReqPing        = "REQ_PING"
)

// Response and event tags sent by the server.
const (
	ResLoginOK              = "RES_LOGIN_OK"
	ResLoginFail            = "RES_LOGIN_FAIL"
	ResLobbyCreated         = "RES_LOBBY_CREATED"
	ResLobbyJoined          = "RES_LOBBY_JOINED"
	ResLobbyLeft            = "RES_LOBBY_LEFT"
	ResGameStarted          = "RES_GAME_STARTED"
	ResRoundResult          = "RES_ROUND_RESULT"
	ResMatchResult          = "RES_MATCH_RESULT"
	ResOpponentDisconnected = "RES_OPPONENT_DISCONNECTED"
	ResGameResumed          = "RES_GAME_RESUMED"
	ResGameCannotContinue   = "RES_GAME_CANNOT_CONTINUE"
	ResRematchReady         = "RES_REMATCH_READY"
	ResPing                 = "RES_PING"
	ResError                = "RES_ERROR"
	ResLogoutOK             = "RES_LOGOUT_OK"
	ResState                = "RES_STATE"
)

// Kind is the closed set of inbound message kinds the client reacts to.
// Anything else decodes as KindUnknown and is ignored by the session.
type Kind int

const (
	KindUnknown Kind = iota
	KindLoginOK
	KindLoginFail
	KindLobbyCreated
	KindLobbyJoined
	KindLobbyLeft
	KindGameStarted
	KindRoundResult
	KindMatchResult
	KindOpponentDisconnected
	KindGameResumed
	KindGameCannotContinue
	KindRematchReady
	KindPing
	KindError
	KindLogoutOK
	KindState
)

var kindByTag = map[string]Kind{
	ResLoginOK:              KindLoginOK,
	ResLoginFail:            KindLoginFail,
	ResLobbyCreated:         KindLobbyCreated,
	ResLobbyJoined:          KindLobbyJoined,
	ResLobbyLeft:            KindLobbyLeft,
	ResGameStarted:          KindGameStarted,
	ResRoundResult:          KindRoundResult,
	ResMatchResult:          KindMatchResult,
	ResOpponentDisconnected: KindOpponentDisconnected,
	ResGameResumed:          KindGameResumed,
	ResGameCannotContinue:   KindGameCannotContinue,
	ResRematchReady:         KindRematchReady,
	ResPing:                 KindPing,
	ResError:                KindError,
	ResLogoutOK:             KindLogoutOK,
	ResState:                KindState,
}

// KindOf maps a type tag to its Kind.
func KindOf(tag string) Kind {
	if k, ok := kindByTag[tag]; ok {
		return k
	}
	return KindUnknown
}

var kindNames = [...]string{
	KindUnknown:              "UNKNOWN",
	KindLoginOK:              ResLoginOK,
	KindLoginFail:            ResLoginFail,
	KindLobbyCreated:         ResLobbyCreated,
	KindLobbyJoined:          ResLobbyJoined,
	KindLobbyLeft:            ResLobbyLeft,
	KindGameStarted:          ResGameStarted,
	KindRoundResult:          ResRoundResult,
	KindMatchResult:          ResMatchResult,
	KindOpponentDisconnected: ResOpponentDisconnected,
	KindGameResumed:          ResGameResumed,
	KindGameCannotContinue:   ResGameCannotContinue,
	KindRematchReady:         ResRematchReady,
	KindPing:                 ResPing,
	KindError:                ResError,
	KindLogoutOK:             ResLogoutOK,
	KindState:                ResState,
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UNKNOWN"
}
