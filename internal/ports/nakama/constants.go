package nakama

const (
	// RpcCreateRoom creates a private room and returns its match id.
	RpcCreateRoom = "create_room"

	// RpcQuickMatch is the Nakama RPC id clients call to find or create a lobby-capable match.
	RpcQuickMatch = "quick_match"

	// RpcRejoin returns the caller's active room and a fresh seat token.
	RpcRejoin = "rejoin"

	// MatchNameTruco is the authoritative match handler name registered with Nakama.
	MatchNameTruco = "truco_match"

	gameLabel = "truco"
)

// Label values for the match "phase" key.
const (
	PhaseLobby   = "lobby"
	PhasePlaying = "playing"
	PhaseEnded   = "ended"
)

// Op codes for client messages and server events.
const (
	// Client -> Server
	OpStartGame        int64 = 1
	OpPlayCard         int64 = 2
	OpCallEnvido       int64 = 3
	OpRaiseRealEnvido  int64 = 4
	OpRaiseFaltaEnvido int64 = 5
	OpAccept           int64 = 6
	OpDecline          int64 = 7
	OpCallTruco        int64 = 8
	OpRaiseRetruco     int64 = 9
	OpRaiseValeCuatro  int64 = 10
	OpForfeit          int64 = 11
	OpRequestState     int64 = 12

	// Server -> Client events
	OpPlayerJoined  int64 = 101
	OpPlayerLeft    int64 = 102
	OpGameStarted   int64 = 103
	OpHandDealt     int64 = 104 // send privately
	OpCardPlayed    int64 = 105
	OpBidPlaced     int64 = 106
	OpBidAnswered   int64 = 107
	OpPlayerForfeit int64 = 108
	OpScoreUpdated  int64 = 109
	OpHandEnded     int64 = 110
	OpHandReset     int64 = 111
	OpGameEnded     int64 = 112
	OpPlayerView    int64 = 113 // send privately
	OpGameError     int64 = 199
)
