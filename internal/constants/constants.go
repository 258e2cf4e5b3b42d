package constants

import "time"

const (
	ScheduleCacheTTL = 60 * time.Minute
	ScanDelay        = 200 * time.Millisecond
)

const (
	ExternalAPITimeout = 15 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
	SyncTimeout        = 5 * time.Minute
	WinnerTimeout      = 2 * time.Minute
	SuggestionsTimeout = 1 * time.Minute
)

const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	MaxRound         = 30
	ProbeRoundsAhead = 5
	ProbeRoundsBack  = 3
	SyncRunsLimit    = 20
	FirestoreRetries = 5
)

const (
	CompetitionID   = "19795"
	CompetitionName = "Super Copa Masculina"
	FCBQBaseURL     = "https://www.basquetcatala.cat"
	PublicationSrc  = "fcbq-scraper"
	ReportSource    = "fcbq-acta"
)

const (
	CloseReasonNewRound = "Nova jornada %d publicada"
	CloseReasonRestWeek = "Setmana de descans"
	RestWeekMessage     = "Aquesta setmana no hi ha partits. La votació es reobrirà amb la propera jornada."
)
