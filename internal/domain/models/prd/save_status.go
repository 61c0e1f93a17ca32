package prd

// SaveStatus is the auto-save state of an editing session
type SaveStatus string

const (
	SaveStatusIdle   SaveStatus = "idle"
	SaveStatusSaving SaveStatus = "saving"
	SaveStatusSaved  SaveStatus = "saved"
	SaveStatusError  SaveStatus = "error"
)
