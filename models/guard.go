package models

// GovernedOperation identifies a primitive the export interceptor guards
type GovernedOperation string

const (
	OperationFileOpenWrite    GovernedOperation = "file_open_write"
	OperationSerializeCSV     GovernedOperation = "serialize_csv"
	OperationSerializeJSON    GovernedOperation = "serialize_json"
	OperationSerializeExcel   GovernedOperation = "serialize_excel"
	OperationSerializeParquet GovernedOperation = "serialize_parquet"
	OperationSerializePickle  GovernedOperation = "serialize_pickle"
	OperationNumericSave      GovernedOperation = "numeric_save"
	OperationNumericSaveText  GovernedOperation = "numeric_savetext"
	OperationInteractiveInput GovernedOperation = "interactive_input"
)

// GovernedOperations lists every guarded operation in registration order
var GovernedOperations = []GovernedOperation{
	OperationFileOpenWrite,
	OperationSerializeCSV,
	OperationSerializeJSON,
	OperationSerializeExcel,
	OperationSerializeParquet,
	OperationSerializePickle,
	OperationNumericSave,
	OperationNumericSaveText,
	OperationInteractiveInput,
}

// RejectionMode is how a guard decides to reject a call
type RejectionMode string

const (
	// RejectAlways rejects every invocation regardless of arguments
	RejectAlways RejectionMode = "deny_always"
	// RejectByExtension rejects write-mode opens of denylisted extensions
	RejectByExtension RejectionMode = "deny_by_extension"
)

// RejectionPolicy is the policy bound to one governed operation
type RejectionPolicy struct {
	Mode      RejectionMode `json:"mode"`
	Primitive string        `json:"primitive"`
}

// GuardRegistration pairs an operation with its policy
type GuardRegistration struct {
	Operation GovernedOperation `json:"operation"`
	Policy    RejectionPolicy   `json:"policy"`
}

// ExportGuard rejects governed operations. Data-frame and numeric-array
// values carry the guard of the session that produced them.
type ExportGuard interface {
	Deny(op GovernedOperation, target string) error
}
