package rest

import (
	"github.com/dfryer1193/spaceblog/blog/application"
	"github.com/gin-gonic/gin"
)

func NewApi(router gin.IRouter, posts *application.PostService) {
	postsV1 := router.Group("posts/v1")
	{
		postsV1.GET("/", GetPosts(posts))
		postsV1.GET("/:postId", GetPost(posts))
	}
}
