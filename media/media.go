package media

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	shell "github.com/ipfs/go-ipfs-api"
	"github.com/kawilabs/go-kawi/service/logger"
	"github.com/kawilabs/go-kawi/service/pinata"
	"github.com/kawilabs/go-kawi/util"
)

// defaultNetwork is the pinning network files land on unless the request says otherwise
const defaultNetwork = "public"

var errNoFiles = errors.New("no files in upload batch")

type uploadOutput struct {
	Success bool   `json:"success"`
	CID     string `json:"cid"`
}

type batchFileResult struct {
	Name  string `json:"name"`
	CID   string `json:"cid,omitempty"`
	Error string `json:"error,omitempty"`
}

type batchUploadOutput struct {
	Success bool              `json:"success"`
	Results []batchFileResult `json:"results"`
	Failed  []string          `json:"failed,omitempty"`
}

// uploadImage pins a single multipart file and returns its CID
func uploadImage(pin *pinata.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		header, err := c.FormFile("file")
		if err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		cid, err := pinFormFile(c, pin, header)
		if err != nil {
			util.ErrResponse(c, http.StatusBadGateway, err)
			return
		}

		c.JSON(http.StatusOK, uploadOutput{Success: true, CID: cid})
	}
}

type uploadMetadataInput struct {
	Name     string          `json:"name"`
	Metadata json.RawMessage `json:"metadata" binding:"required"`
}

// uploadMetadata pins an arbitrary JSON document as a .json file
func uploadMetadata(pin *pinata.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input uploadMetadataInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		name := input.Name
		if name == "" {
			name = "metadata"
		}

		cid, err := pin.UploadJSON(c, input.Metadata, name, pinata.UploadOptions{Network: defaultNetwork})
		if err != nil {
			util.ErrResponse(c, http.StatusBadGateway, err)
			return
		}

		c.JSON(http.StatusOK, uploadOutput{Success: true, CID: cid})
	}
}

type uploadCollectionInput struct {
	Name     string          `json:"name" binding:"required"`
	Metadata json.RawMessage `json:"metadata" binding:"required"`
	GroupID  string          `json:"groupId"`
}

// uploadCollection pins collection-level metadata, tagged so the pinning
// service can group it with the collection's assets
func uploadCollection(pin *pinata.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input uploadCollectionInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		cid, err := pin.UploadJSON(c, input.Metadata, input.Name, pinata.UploadOptions{
			Network:   defaultNetwork,
			GroupID:   input.GroupID,
			KeyValues: map[string]string{"collection": input.Name},
		})
		if err != nil {
			util.ErrResponse(c, http.StatusBadGateway, err)
			return
		}

		c.JSON(http.StatusOK, uploadOutput{Success: true, CID: cid})
	}
}

// uploadBatchImages pins every file in the multipart form, reporting a
// per-file result. A partially failed batch is still a success; fully failed
// files are listed so the caller can retry them.
func uploadBatchImages(pin *pinata.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}
		files := form.File["files"]
		if len(files) == 0 {
			util.ErrResponse(c, http.StatusBadRequest, errNoFiles)
			return
		}

		out := batchUploadOutput{Success: true, Results: make([]batchFileResult, 0, len(files))}
		for _, header := range files {
			cid, err := pinFormFile(c, pin, header)
			if err != nil {
				logger.For(c).Warnf("batch upload of %s failed: %s", header.Filename, err)
				out.Results = append(out.Results, batchFileResult{Name: header.Filename, Error: err.Error()})
				out.Failed = append(out.Failed, header.Filename)
				continue
			}
			out.Results = append(out.Results, batchFileResult{Name: header.Filename, CID: cid})
		}

		c.JSON(http.StatusOK, out)
	}
}

// fileInfo returns the pinning service's record for a CID
func fileInfo(pin *pinata.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		info, err := pin.FileInfo(c, c.Param("cid"), defaultNetwork)
		if err != nil {
			util.ErrResponse(c, http.StatusBadGateway, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

type signedURLInput struct {
	Filename      string `json:"filename"`
	ExpiresSecond int    `json:"expires" binding:"required,gt=0"`
	GroupID       string `json:"groupId"`
}

type signedURLOutput struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

// signedUploadURL hands out a short-lived URL for client-side uploads
func signedUploadURL(pin *pinata.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input signedURLInput
		if err := c.ShouldBindJSON(&input); err != nil {
			util.ErrResponse(c, http.StatusBadRequest, err)
			return
		}

		url, err := pin.SignedUploadURL(c, pinata.SignOptions{
			Network:       defaultNetwork,
			ExpiresSecond: input.ExpiresSecond,
			Filename:      input.Filename,
			GroupID:       input.GroupID,
		})
		if err != nil {
			util.ErrResponse(c, http.StatusBadGateway, err)
			return
		}

		c.JSON(http.StatusOK, signedURLOutput{Success: true, URL: url})
	}
}

// ipfsContent streams pinned content from the ipfs node by CID
func ipfsContent(ipfs *shell.Shell) gin.HandlerFunc {
	return func(c *gin.Context) {
		reader, err := ipfs.Cat(c.Param("cid"))
		if err != nil {
			util.ErrResponse(c, http.StatusBadGateway, err)
			return
		}
		defer reader.Close()

		c.Status(http.StatusOK)
		if _, err := io.Copy(c.Writer, reader); err != nil {
			logger.For(c).Errorf("streaming %s from ipfs failed: %s", c.Param("cid"), err)
		}
	}
}

func pinFormFile(c *gin.Context, pin *pinata.Client, header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	return pin.UploadFile(c, file, header.Filename, pinata.UploadOptions{
		MimeType: header.Header.Get("Content-Type"),
		Network:  defaultNetwork,
	})
}

// HandlersInit mounts the media routes on the router
func HandlersInit(router *gin.Engine, pin *pinata.Client, ipfs *shell.Shell) *gin.Engine {
	mediaGroup := router.Group("/media")
	mediaGroup.POST("/upload-image", uploadImage(pin))
	mediaGroup.POST("/upload-metadata", uploadMetadata(pin))
	mediaGroup.POST("/upload-collection", uploadCollection(pin))
	mediaGroup.POST("/upload-batch-images", uploadBatchImages(pin))
	mediaGroup.POST("/signed-url", signedUploadURL(pin))
	mediaGroup.GET("/info/:cid", fileInfo(pin))
	mediaGroup.GET("/ipfs/:cid", ipfsContent(ipfs))
	return router
}
