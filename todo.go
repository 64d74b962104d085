/*
	Project: Academia - course authoring for Masomo
	Scope: course drafts (auto-save, draft API, sync tool, admin)
*/
package academia

/*
TODO: run `admin purgedrafts` from a cron job in QA & PROD
TODO: draftsync: restore a specific draft (needs `GET /teacher/courses/:id/drafts`)
TODO: course CRUD API (courses are created by the catalog service for now)
*/
