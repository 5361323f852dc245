package synchandlers

import "net/http"

// Handlers defines the admin HTTP surface of the sync engine.
type Handlers interface {
	// HandleQueueDiscovery queues one page of tournament discovery.
	HandleQueueDiscovery(w http.ResponseWriter, r *http.Request)

	// HandleQueueStructure queues a structure sync for a tournament or competition.
	HandleQueueStructure(w http.ResponseWriter, r *http.Request)

	// HandleQueueGames queues a result sync, optionally scoped to a day or match codes.
	HandleQueueGames(w http.ResponseWriter, r *http.Request)

	// HandleQueueTeamMatching queues a team matching job.
	HandleQueueTeamMatching(w http.ResponseWriter, r *http.Request)

	HandleGetStats(w http.ResponseWriter, r *http.Request)
	HandleListJobs(w http.ResponseWriter, r *http.Request)
	HandleGetJob(w http.ResponseWriter, r *http.Request)

	// HandleStreamEvents streams job events as server-sent events.
	HandleStreamEvents(w http.ResponseWriter, r *http.Request)
}
