package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.ledger.ListTransactions(r.Context())
	if err != nil {
		handleError(w, r, "list_transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(txs, newTransactionDTO))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := s.ledger.GetTransaction(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, "get_transaction", err)
		return
	}
	writeJSON(w, http.StatusOK, newTransactionDTO(t))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in transactionInput
	if err := decodeJSON(r, &in); err != nil {
		handleError(w, r, "create_transaction", err)
		return
	}
	t, err := in.toTransaction()
	if err != nil {
		handleError(w, r, "create_transaction", err)
		return
	}
	created, err := s.ledger.CreateTransaction(r.Context(), t)
	if err != nil {
		handleError(w, r, "create_transaction", err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusCreated, newTransactionDTO(created))
}

// handleUpdateTransaction replaces the whole record; the id comes from the path.
func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var in transactionInput
	if err := decodeJSON(r, &in); err != nil {
		handleError(w, r, "update_transaction", err)
		return
	}
	t, err := in.toTransaction()
	if err != nil {
		handleError(w, r, "update_transaction", err)
		return
	}
	t.ID = mux.Vars(r)["id"]
	updated, err := s.ledger.UpdateTransaction(r.Context(), t)
	if err != nil {
		handleError(w, r, "update_transaction", err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusOK, newTransactionDTO(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), mux.Vars(r)["id"]); err != nil {
		handleError(w, r, "delete_transaction", err)
		return
	}
	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListLiabilities(w http.ResponseWriter, r *http.Request) {
	liabs, err := s.ledger.ListLiabilities(r.Context())
	if err != nil {
		handleError(w, r, "list_liabilities", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(liabs, newLiabilityDTO))
}

func (s *Server) handleCreateLiability(w http.ResponseWriter, r *http.Request) {
	var in liabilityInput
	if err := decodeJSON(r, &in); err != nil {
		handleError(w, r, "create_liability", err)
		return
	}
	l, err := in.toLiability()
	if err != nil {
		handleError(w, r, "create_liability", err)
		return
	}
	created, err := s.ledger.CreateLiability(r.Context(), l)
	if err != nil {
		handleError(w, r, "create_liability", err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusCreated, newLiabilityDTO(created))
}

func (s *Server) handleDeleteLiability(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteLiability(r.Context(), mux.Vars(r)["id"]); err != nil {
		handleError(w, r, "delete_liability", err)
		return
	}
	s.invalidateReports()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.ledger.ListContacts(r.Context())
	if err != nil {
		handleError(w, r, "list_contacts", err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(contacts, newContactDTO))
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var in contactInput
	if err := decodeJSON(r, &in); err != nil {
		handleError(w, r, "create_contact", err)
		return
	}
	created, err := s.ledger.CreateContact(r.Context(), in.toContact())
	if err != nil {
		handleError(w, r, "create_contact", err)
		return
	}
	s.invalidateReports()
	writeJSON(w, http.StatusCreated, newContactDTO(created))
}
