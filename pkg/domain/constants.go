package domain

// Structural item types known to the engine.
const (
	TypeSequence = "sequence"
	TypeLoop     = "loop"
)

// Well-known global variable names.
const (
	VarStart                = "start"
	VarTitle                = "title"
	VarTransparentVariables = "transparent_variables"
	VarSubjectNr            = "subject_nr"
	VarSubjectParity        = "subject_parity"
	VarDatetime             = "datetime"
	VarVersion              = "opensesame_version"
	VarCodename             = "opensesame_codename"
	VarLogfile              = "logfile"

	VarTotalResponses      = "total_responses"
	VarTotalCorrect        = "total_correct"
	VarTotalResponseTime   = "total_response_time"
	VarAccuracy            = "accuracy"
	VarAcc                 = "acc"
	VarAvgRT               = "avg_rt"
	VarAverageResponseTime = "average_response_time"
	VarResponse            = "response"
	VarResponseTime        = "response_time"
	VarCorrect             = "correct"
)

// Undefined is the sentinel value of derived feedback variables before the
// first response.
const Undefined = "undefined"
