package handlers

import (
	"net/http"
	"strings"

	"car-market/internal/logger"
)

// TaskHandler запускает регулярные задачи рынка вручную.
// Основной путь запуска задач идет через Kafka, эти эндпоинты
// дублируют его для отладки и догоняющих прогонов.
type TaskHandler struct {
	tasks MarketTasks
	log   *logger.Logger
}

// NewTaskHandler создает новый обработчик задач
func NewTaskHandler(tasks MarketTasks, log *logger.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, log: log}
}

// DealerRestock запускает пополнение склада дилера
func (h *TaskHandler) DealerRestock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	dealerID, err := extractUUIDFromPath(r.URL.Path, "/api/dealers/")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid dealer ID")
		return
	}

	if !strings.HasSuffix(r.URL.Path, "/restock") {
		writeErrorResponse(w, http.StatusNotFound, "Unknown dealer action")
		return
	}

	if err := h.tasks.RunDealerRestock(r.Context(), dealerID); err != nil {
		writeServiceError(w, h.log, err, "Failed to run dealer restock")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Dealer restock completed"})
}

// CooperationCheck пересматривает список поставщиков дилера
func (h *TaskHandler) CooperationCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	dealerID, err := extractUUIDFromPath(r.URL.Path, "/api/dealers/")
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "Invalid dealer ID")
		return
	}

	if !strings.HasSuffix(r.URL.Path, "/cooperation") {
		writeErrorResponse(w, http.StatusNotFound, "Unknown dealer action")
		return
	}

	if err := h.tasks.RunCooperationCheck(r.Context(), dealerID); err != nil {
		writeServiceError(w, h.log, err, "Failed to run cooperation check")
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "Cooperation check completed"})
}
