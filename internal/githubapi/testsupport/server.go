// Package testsupport hosts an in-memory GitHub REST API covering repository creation and the
// Git data endpoints, for exercising the real go-github client in tests.
package testsupport

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

const (
	authorizationHeaderConstant      = "Authorization"
	authorizationPrefixConstant      = "token "
	contentTypeHeaderConstant        = "Content-Type"
	jsonContentTypeConstant          = "application/json"
	badCredentialsMessageConstant    = "Bad credentials"
	notFoundMessageConstant          = "Not Found"
	repositoryExistsMessageConstant  = "name already exists on this account"
	repositoryFailureMessageConstant = "Repository creation failed."
	emptyRepositoryMessageConstant   = "Git Repository is empty."
	referenceExistsMessageConstant   = "Reference already exists"
	referenceMissingMessageConstant  = "Reference does not exist"
	branchMissingTemplateConstant    = "The branch %s was not found in this repository."
	defaultReferenceMessageConstant  = "Cannot delete the default branch"
	invalidObjectTemplateConstant    = "%s is not a valid %s"
	injectedFailureMessageConstant   = "injected failure"
	fullNameTemplateConstant         = "%s/%s"
	htmlURLTemplateConstant          = "https://github.example/%s"
	branchReferencePrefixConstant    = "refs/heads/"
	defaultBranchNameConstant        = "main"
	initialReadmePathConstant        = "README.md"
	initialCommitMessageConstant     = "Initial commit"
	commitSHATemplateConstant        = "commit %d %s %s"
	treeEntryTemplateConstant        = "%s %s %s %s\n"
	blobEncodingBase64Constant       = "base64"
	objectTypeBlobConstant           = "blob"
	objectTypeTreeConstant           = "tree"
	objectTypeCommitConstant         = "commit"
	pathSeparatorConstant            = "/"
)

// Route names accepted by FailureRule.Route.
const (
	RouteCreateRepository = "create_repository"
	RouteCreateBlob       = "create_blob"
	RouteCreateTree       = "create_tree"
	RouteGetTree          = "get_tree"
	RouteCreateCommit     = "create_commit"
	RouteGetReference     = "get_reference"
	RouteCreateReference  = "create_reference"
	RouteUpdateReference  = "update_reference"
	RouteGetUser          = "get_user"
	RouteEditRepository   = "edit_repository"
	RouteDeleteReference  = "delete_reference"
)

// FailureRule injects an HTTP failure into matching requests. An empty Message answers with a
// generic failure text.
type FailureRule struct {
	Route        string
	BodyFragment string
	StatusCode   int
	Message      string
	Times        int
}

// RecordedRequest captures a handled request.
type RecordedRequest struct {
	Route      string
	Repository string
	Body       string
}

// TreeEntry is a stored tree entry.
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
}

// Commit is a stored commit.
type Commit struct {
	SHA         string
	Message     string
	AuthorName  string
	AuthorEmail string
	AuthorDate  *time.Time
	TreeSHA     string
	ParentSHAs  []string
}

type repository struct {
	owner         string
	name          string
	private       bool
	initialized   bool
	defaultBranch string
	blobs         map[string][]byte
	trees         map[string][]TreeEntry
	commits       map[string]Commit
	references    map[string]string
}

// Server is an in-memory GitHub API.
type Server struct {
	Login string
	Token string

	httpServer   *httptest.Server
	mutex        sync.Mutex
	repositories map[string]*repository
	failureRules []*FailureRule
	requests     []RecordedRequest
	commitSerial int
}

// NewServer starts a server authenticating the given token and reporting login as the current user.
func NewServer(login string, token string) *Server {
	server := &Server{
		Login:        login,
		Token:        token,
		repositories: make(map[string]*repository),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /user", server.handleGetUser)
	mux.HandleFunc("POST /user/repos", server.handleCreateRepository)
	mux.HandleFunc("POST /orgs/{org}/repos", server.handleCreateRepository)
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/blobs", server.handleCreateBlob)
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/trees", server.handleCreateTree)
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/trees/{sha}", server.handleGetTree)
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/commits", server.handleCreateCommit)
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/ref/{ref...}", server.handleGetReference)
	mux.HandleFunc("GET /repos/{owner}/{repo}/git/refs/{ref...}", server.handleGetReference)
	mux.HandleFunc("POST /repos/{owner}/{repo}/git/refs", server.handleCreateReference)
	mux.HandleFunc("PATCH /repos/{owner}/{repo}/git/refs/{ref...}", server.handleUpdateReference)
	mux.HandleFunc("DELETE /repos/{owner}/{repo}/git/refs/{ref...}", server.handleDeleteReference)
	mux.HandleFunc("PATCH /repos/{owner}/{repo}", server.handleEditRepository)

	server.httpServer = httptest.NewServer(server.authenticate(mux))
	return server
}

// URL returns the API base URL.
func (server *Server) URL() string {
	return server.httpServer.URL + pathSeparatorConstant
}

// Close stops the server.
func (server *Server) Close() {
	server.httpServer.Close()
}

// AddFailure registers a failure rule. A rule with Times zero applies to every matching request.
func (server *Server) AddFailure(rule FailureRule) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	ruleCopy := rule
	server.failureRules = append(server.failureRules, &ruleCopy)
}

// SeedRepository creates a repository as if it had been created before the run.
func (server *Server) SeedRepository(owner string, name string, initialize bool) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	server.createRepositoryLocked(owner, name, true, initialize)
}

// SeedTree stores a tree under the provided SHA without validating its entries.
func (server *Server) SeedTree(fullName string, sha string, entries []TreeEntry) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	if stored, exists := server.repositories[fullName]; exists {
		stored.trees[sha] = append([]TreeEntry(nil), entries...)
	}
}

// Requests returns the handled requests in arrival order.
func (server *Server) Requests() []RecordedRequest {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return append([]RecordedRequest(nil), server.requests...)
}

// RequestCount counts handled requests for the route and repository full name. An empty
// repository matches all repositories.
func (server *Server) RequestCount(route string, fullName string) int {
	count := 0
	for _, request := range server.Requests() {
		if request.Route == route && (len(fullName) == 0 || request.Repository == fullName) {
			count++
		}
	}
	return count
}

// RepositoryExists reports whether the repository was created.
func (server *Server) RepositoryExists(fullName string) bool {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	_, exists := server.repositories[fullName]
	return exists
}

// RepositoryPrivate reports the stored visibility.
func (server *Server) RepositoryPrivate(fullName string) bool {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	stored, exists := server.repositories[fullName]
	return exists && stored.private
}

// DefaultBranch returns the stored default branch of the repository.
func (server *Server) DefaultBranch(fullName string) string {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	stored, exists := server.repositories[fullName]
	if !exists {
		return ""
	}
	return stored.defaultBranch
}

// BranchTarget returns the commit SHA referenced by the branch.
func (server *Server) BranchTarget(fullName string, branch string) (string, bool) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	stored, exists := server.repositories[fullName]
	if !exists {
		return "", false
	}
	sha, found := stored.references[branchReferencePrefixConstant+branch]
	return sha, found
}

// Commit returns a stored commit.
func (server *Server) Commit(fullName string, sha string) (Commit, bool) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	stored, exists := server.repositories[fullName]
	if !exists {
		return Commit{}, false
	}
	commit, found := stored.commits[sha]
	return commit, found
}

// ReadFile resolves a slash separated path inside the tree of the commit and returns the blob content.
func (server *Server) ReadFile(fullName string, commitSHA string, filePath string) ([]byte, bool) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	stored, exists := server.repositories[fullName]
	if !exists {
		return nil, false
	}
	commit, found := stored.commits[commitSHA]
	if !found {
		return nil, false
	}

	currentTree := commit.TreeSHA
	segments := strings.Split(filePath, pathSeparatorConstant)
	for segmentIndex, segment := range segments {
		entry, entryFound := findEntry(stored.trees[currentTree], segment)
		if !entryFound {
			return nil, false
		}
		if segmentIndex == len(segments)-1 {
			content, blobFound := stored.blobs[entry.SHA]
			return content, blobFound && entry.Type == objectTypeBlobConstant
		}
		if entry.Type != objectTypeTreeConstant {
			return nil, false
		}
		currentTree = entry.SHA
	}
	return nil, false
}

// TreeEntries returns the entries stored for the tree SHA.
func (server *Server) TreeEntries(fullName string, treeSHA string) ([]TreeEntry, bool) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	stored, exists := server.repositories[fullName]
	if !exists {
		return nil, false
	}
	entries, found := stored.trees[treeSHA]
	return append([]TreeEntry(nil), entries...), found
}

func findEntry(entries []TreeEntry, name string) (TreeEntry, bool) {
	for _, entry := range entries {
		if entry.Path == name {
			return entry, true
		}
	}
	return TreeEntry{}, false
}

func (server *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if len(server.Token) > 0 && request.Header.Get(authorizationHeaderConstant) != authorizationPrefixConstant+server.Token {
			writeMessage(writer, http.StatusUnauthorized, badCredentialsMessageConstant)
			return
		}
		next.ServeHTTP(writer, request)
	})
}

func (server *Server) begin(writer http.ResponseWriter, request *http.Request, route string) ([]byte, *repository, bool) {
	body, _ := io.ReadAll(request.Body)
	fullName := ""
	if owner := request.PathValue("owner"); len(owner) > 0 {
		fullName = fmt.Sprintf(fullNameTemplateConstant, owner, request.PathValue("repo"))
	}

	server.mutex.Lock()
	server.requests = append(server.requests, RecordedRequest{Route: route, Repository: fullName, Body: string(body)})
	for _, rule := range server.failureRules {
		if rule.Route != route || !strings.Contains(string(body), rule.BodyFragment) {
			continue
		}
		if rule.Times < 0 {
			continue
		}
		if rule.Times > 0 {
			rule.Times--
			if rule.Times == 0 {
				rule.Times = -1
			}
		}
		failureMessage := rule.Message
		if len(failureMessage) == 0 {
			failureMessage = injectedFailureMessageConstant
		}
		server.mutex.Unlock()
		writeMessage(writer, rule.StatusCode, failureMessage)
		return nil, nil, false
	}

	if len(fullName) == 0 {
		server.mutex.Unlock()
		return body, nil, true
	}

	stored, exists := server.repositories[fullName]
	if !exists {
		server.mutex.Unlock()
		writeMessage(writer, http.StatusNotFound, notFoundMessageConstant)
		return nil, nil, false
	}
	return body, stored, true
}

func (server *Server) handleGetUser(writer http.ResponseWriter, request *http.Request) {
	if _, _, proceed := server.begin(writer, request, RouteGetUser); !proceed {
		return
	}
	writeJSON(writer, http.StatusOK, map[string]any{"login": server.Login})
}

func (server *Server) handleCreateRepository(writer http.ResponseWriter, request *http.Request) {
	body, _, proceed := server.begin(writer, request, RouteCreateRepository)
	if !proceed {
		return
	}

	var payload struct {
		Name     string `json:"name"`
		Private  bool   `json:"private"`
		AutoInit bool   `json:"auto_init"`
	}
	_ = json.Unmarshal(body, &payload)

	owner := request.PathValue("org")
	if len(owner) == 0 {
		owner = server.Login
	}

	server.mutex.Lock()
	defer server.mutex.Unlock()
	if _, exists := server.repositories[fmt.Sprintf(fullNameTemplateConstant, owner, payload.Name)]; exists {
		writeJSON(writer, http.StatusUnprocessableEntity, map[string]any{
			"message": repositoryFailureMessageConstant,
			"errors":  []map[string]string{{"resource": "Repository", "code": "custom", "field": "name", "message": repositoryExistsMessageConstant}},
		})
		return
	}

	created := server.createRepositoryLocked(owner, payload.Name, payload.Private, payload.AutoInit)
	writeJSON(writer, http.StatusCreated, repositoryPayload(created))
}

func (server *Server) handleEditRepository(writer http.ResponseWriter, request *http.Request) {
	body, stored, proceed := server.begin(writer, request, RouteEditRepository)
	if !proceed {
		return
	}
	defer server.mutex.Unlock()

	var payload struct {
		DefaultBranch string `json:"default_branch"`
	}
	_ = json.Unmarshal(body, &payload)

	if len(payload.DefaultBranch) > 0 {
		if _, exists := stored.references[branchReferencePrefixConstant+payload.DefaultBranch]; !exists {
			writeMessage(writer, http.StatusUnprocessableEntity, fmt.Sprintf(branchMissingTemplateConstant, payload.DefaultBranch))
			return
		}
		stored.defaultBranch = payload.DefaultBranch
	}
	writeJSON(writer, http.StatusOK, repositoryPayload(stored))
}

func (server *Server) createRepositoryLocked(owner string, name string, private bool, initialize bool) *repository {
	created := &repository{
		owner:         owner,
		name:          name,
		private:       private,
		defaultBranch: defaultBranchNameConstant,
		blobs:         make(map[string][]byte),
		trees:         make(map[string][]TreeEntry),
		commits:       make(map[string]Commit),
		references:    make(map[string]string),
	}
	server.repositories[fmt.Sprintf(fullNameTemplateConstant, owner, name)] = created

	if initialize {
		created.initialized = true
		readme := []byte("# " + name + "\n")
		blobSHA := plumbing.ComputeHash(plumbing.BlobObject, readme).String()
		created.blobs[blobSHA] = readme
		treeEntries := []TreeEntry{{Path: initialReadmePathConstant, Mode: "100644", Type: objectTypeBlobConstant, SHA: blobSHA}}
		treeSHA := hashTree(treeEntries)
		created.trees[treeSHA] = treeEntries
		commitSHA := server.mintCommitSHALocked(initialCommitMessageConstant, treeSHA)
		created.commits[commitSHA] = Commit{SHA: commitSHA, Message: initialCommitMessageConstant, TreeSHA: treeSHA}
		created.references[branchReferencePrefixConstant+defaultBranchNameConstant] = commitSHA
	}
	return created
}

func (server *Server) handleCreateBlob(writer http.ResponseWriter, request *http.Request) {
	body, stored, proceed := server.begin(writer, request, RouteCreateBlob)
	if !proceed {
		return
	}
	defer server.mutex.Unlock()

	if !stored.initialized {
		writeMessage(writer, http.StatusConflict, emptyRepositoryMessageConstant)
		return
	}

	var payload struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	_ = json.Unmarshal(body, &payload)

	content := []byte(payload.Content)
	if payload.Encoding == blobEncodingBase64Constant {
		decoded, decodeError := base64.StdEncoding.DecodeString(payload.Content)
		if decodeError != nil {
			writeMessage(writer, http.StatusUnprocessableEntity, decodeError.Error())
			return
		}
		content = decoded
	}

	blobSHA := plumbing.ComputeHash(plumbing.BlobObject, content).String()
	stored.blobs[blobSHA] = content
	writeJSON(writer, http.StatusCreated, map[string]any{"sha": blobSHA})
}

func (server *Server) handleCreateTree(writer http.ResponseWriter, request *http.Request) {
	body, stored, proceed := server.begin(writer, request, RouteCreateTree)
	if !proceed {
		return
	}
	defer server.mutex.Unlock()

	if !stored.initialized {
		writeMessage(writer, http.StatusConflict, emptyRepositoryMessageConstant)
		return
	}

	var payload struct {
		Tree []TreeEntry `json:"tree"`
	}
	_ = json.Unmarshal(body, &payload)

	for _, entry := range payload.Tree {
		valid := true
		switch entry.Type {
		case objectTypeBlobConstant:
			_, valid = stored.blobs[entry.SHA]
		case objectTypeTreeConstant:
			_, valid = stored.trees[entry.SHA]
		}
		if !valid {
			writeMessage(writer, http.StatusUnprocessableEntity, fmt.Sprintf(invalidObjectTemplateConstant, entry.SHA, entry.Type))
			return
		}
	}

	treeSHA := hashTree(payload.Tree)
	stored.trees[treeSHA] = payload.Tree
	writeJSON(writer, http.StatusCreated, map[string]any{"sha": treeSHA, "tree": payload.Tree})
}

func (server *Server) handleGetTree(writer http.ResponseWriter, request *http.Request) {
	_, stored, proceed := server.begin(writer, request, RouteGetTree)
	if !proceed {
		return
	}
	defer server.mutex.Unlock()

	treeSHA := request.PathValue("sha")
	entries, found := stored.trees[treeSHA]
	if !found {
		writeMessage(writer, http.StatusNotFound, notFoundMessageConstant)
		return
	}
	writeJSON(writer, http.StatusOK, map[string]any{"sha": treeSHA, "tree": entries})
}

func (server *Server) handleCreateCommit(writer http.ResponseWriter, request *http.Request) {
	body, stored, proceed := server.begin(writer, request, RouteCreateCommit)
	if !proceed {
		return
	}
	defer server.mutex.Unlock()

	if !stored.initialized {
		writeMessage(writer, http.StatusConflict, emptyRepositoryMessageConstant)
		return
	}

	var payload struct {
		Message string   `json:"message"`
		Tree    string   `json:"tree"`
		Parents []string `json:"parents"`
		Author  *struct {
			Name  string     `json:"name"`
			Email string     `json:"email"`
			Date  *time.Time `json:"date"`
		} `json:"author"`
	}
	_ = json.Unmarshal(body, &payload)

	if _, found := stored.trees[payload.Tree]; !found {
		writeMessage(writer, http.StatusUnprocessableEntity, fmt.Sprintf(invalidObjectTemplateConstant, payload.Tree, objectTypeTreeConstant))
		return
	}
	for _, parentSHA := range payload.Parents {
		if _, found := stored.commits[parentSHA]; !found {
			writeMessage(writer, http.StatusUnprocessableEntity, fmt.Sprintf(invalidObjectTemplateConstant, parentSHA, objectTypeCommitConstant))
			return
		}
	}

	commitSHA := server.mintCommitSHALocked(payload.Message, payload.Tree)
	commit := Commit{SHA: commitSHA, Message: payload.Message, TreeSHA: payload.Tree, ParentSHAs: payload.Parents}
	if payload.Author != nil {
		commit.AuthorName = payload.Author.Name
		commit.AuthorEmail = payload.Author.Email
		commit.AuthorDate = payload.Author.Date
	}
	stored.commits[commitSHA] = commit
	writeJSON(writer, http.StatusCreated, map[string]any{"sha": commitSHA, "message": payload.Message})
}

func (server *Server) handleGetReference(writer http.ResponseWriter, request *http.Request) {
	_, stored, proceed := server.begin(writer, request, RouteGetReference)
	if !proceed {
		return
	}
	defer server.mutex.Unlock()

	referenceName := qualifyReference(request.PathValue("ref"))
	sha, found := stored.references[referenceName]
	if !found {
		writeMessage(writer, http.StatusNotFound, notFoundMessageConstant)
		return
	}
	writeJSON(writer, http.StatusOK, referencePayload(referenceName, sha))
}

func (server *Server) handleCreateReference(writer http.ResponseWriter, request *http.Request) {
	body, stored, proceed := server.begin(writer, request, RouteCreateReference)
	if !proceed {
		return
	}
	defer server.mutex.Unlock()

	var payload struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	}
	_ = json.Unmarshal(body, &payload)

	if _, exists := stored.references[payload.Ref]; exists {
		writeMessage(writer, http.StatusUnprocessableEntity, referenceExistsMessageConstant)
		return
	}
	if _, found := stored.commits[payload.SHA]; !found {
		writeMessage(writer, http.StatusUnprocessableEntity, fmt.Sprintf(invalidObjectTemplateConstant, payload.SHA, objectTypeCommitConstant))
		return
	}
	stored.references[payload.Ref] = payload.SHA
	writeJSON(writer, http.StatusCreated, referencePayload(payload.Ref, payload.SHA))
}

func (server *Server) handleUpdateReference(writer http.ResponseWriter, request *http.Request) {
	body, stored, proceed := server.begin(writer, request, RouteUpdateReference)
	if !proceed {
		return
	}
	defer server.mutex.Unlock()

	var payload struct {
		SHA   string `json:"sha"`
		Force bool   `json:"force"`
	}
	_ = json.Unmarshal(body, &payload)

	referenceName := qualifyReference(request.PathValue("ref"))
	if _, exists := stored.references[referenceName]; !exists {
		writeMessage(writer, http.StatusUnprocessableEntity, referenceMissingMessageConstant)
		return
	}
	if _, found := stored.commits[payload.SHA]; !found {
		writeMessage(writer, http.StatusUnprocessableEntity, fmt.Sprintf(invalidObjectTemplateConstant, payload.SHA, objectTypeCommitConstant))
		return
	}
	stored.references[referenceName] = payload.SHA
	writeJSON(writer, http.StatusOK, referencePayload(referenceName, payload.SHA))
}

func (server *Server) handleDeleteReference(writer http.ResponseWriter, request *http.Request) {
	_, stored, proceed := server.begin(writer, request, RouteDeleteReference)
	if !proceed {
		return
	}
	defer server.mutex.Unlock()

	referenceName := qualifyReference(request.PathValue("ref"))
	if _, exists := stored.references[referenceName]; !exists {
		writeMessage(writer, http.StatusUnprocessableEntity, referenceMissingMessageConstant)
		return
	}
	if referenceName == branchReferencePrefixConstant+stored.defaultBranch {
		writeMessage(writer, http.StatusUnprocessableEntity, defaultReferenceMessageConstant)
		return
	}
	delete(stored.references, referenceName)
	writer.WriteHeader(http.StatusNoContent)
}

func (server *Server) mintCommitSHALocked(message string, treeSHA string) string {
	server.commitSerial++
	serialized := fmt.Sprintf(commitSHATemplateConstant, server.commitSerial, treeSHA, message)
	return plumbing.ComputeHash(plumbing.CommitObject, []byte(serialized)).String()
}

func hashTree(entries []TreeEntry) string {
	sortedEntries := append([]TreeEntry(nil), entries...)
	sort.Slice(sortedEntries, func(leftIndex int, rightIndex int) bool {
		return sortedEntries[leftIndex].Path < sortedEntries[rightIndex].Path
	})
	var serialized bytes.Buffer
	for _, entry := range sortedEntries {
		fmt.Fprintf(&serialized, treeEntryTemplateConstant, entry.Mode, entry.Type, entry.SHA, entry.Path)
	}
	return plumbing.ComputeHash(plumbing.TreeObject, serialized.Bytes()).String()
}

func qualifyReference(reference string) string {
	if strings.HasPrefix(reference, "refs/") {
		return reference
	}
	return "refs/" + reference
}

func repositoryPayload(stored *repository) map[string]any {
	fullName := fmt.Sprintf(fullNameTemplateConstant, stored.owner, stored.name)
	return map[string]any{
		"name":           stored.name,
		"full_name":      fullName,
		"owner":          map[string]any{"login": stored.owner},
		"html_url":       fmt.Sprintf(htmlURLTemplateConstant, fullName),
		"default_branch": stored.defaultBranch,
		"private":        stored.private,
	}
}

func referencePayload(referenceName string, sha string) map[string]any {
	return map[string]any{
		"ref":    referenceName,
		"object": map[string]any{"sha": sha, "type": objectTypeCommitConstant},
	}
}

func writeMessage(writer http.ResponseWriter, statusCode int, message string) {
	writeJSON(writer, statusCode, map[string]any{"message": message})
}

func writeJSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set(contentTypeHeaderConstant, jsonContentTypeConstant)
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}
